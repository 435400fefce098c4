package service

import (
	"context"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/shopspring/decimal"
)

type CoinStorer interface {
	GetBalanceByUserID(ctx context.Context, userId int64) (decimal.Decimal, error)
	History(ctx context.Context, userId int64, limit int) ([]models.CoinEntry, error)
}

type CoinService struct {
	coinStore CoinStorer
}

func NewCoinService(store CoinStorer) *CoinService {
	return &CoinService{coinStore: store}
}

type Wallet struct {
	Balance int64              `json:"balance"`
	Recent  []models.CoinEntry `json:"recent"`
}

func (s *CoinService) GetWallet(ctx context.Context, userID int64) (*Wallet, error) {
	balance, err := s.coinStore.GetBalanceByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.coinStore.History(ctx, userID, 20)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []models.CoinEntry{}
	}
	return &Wallet{Balance: balance.IntPart(), Recent: recent}, nil
}
