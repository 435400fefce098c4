package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CoinEntry is one row of the coin ledger. Balance is sum(cr) - sum(dr).
type CoinEntry struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Cr        decimal.Decimal `json:"cr"`
	Dr        decimal.Decimal `json:"dr"`
	Ref       string          `json:"ref"`
	CreatedAt time.Time       `json:"created_at"`
}
