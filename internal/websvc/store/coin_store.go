package store

import (
	"context"
	"fmt"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type CoinStore struct {
	db *pgxpool.Pool
}

func NewCoinStore(db *pgxpool.Pool) *CoinStore {
	return &CoinStore{db: db}
}

func (c *CoinStore) GetBalanceByUserID(ctx context.Context, userId int64) (decimal.Decimal, error) {
	var totalDr, totalCr decimal.Decimal

	err := c.db.QueryRow(ctx, `
        SELECT 
            COALESCE(SUM(dr), 0), 
            COALESCE(SUM(cr), 0)
        FROM coin_ledger
        WHERE user_id = $1
    `, userId).Scan(&totalDr, &totalCr)

	if err != nil {
		return decimal.Zero, err
	}

	balance := totalCr.Sub(totalDr)
	return balance, nil
}

func (c *CoinStore) History(ctx context.Context, userId int64, limit int) ([]models.CoinEntry, error) {
	rows, err := c.db.Query(ctx, `
        SELECT id, user_id, cr, dr, ref, created_at
        FROM coin_ledger
        WHERE user_id = $1
        ORDER BY id DESC
        LIMIT $2
    `, userId, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.CoinEntry
	for rows.Next() {
		var e models.CoinEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Cr, &e.Dr, &e.Ref, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func creditTx(ctx context.Context, tx pgx.Tx, userId, amount int64, ref string) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO coin_ledger (user_id, cr, ref)
        VALUES ($1, $2, $3)
    `, userId, decimal.NewFromInt(amount), ref)
	if err != nil {
		return fmt.Errorf("credit coins: %w", err)
	}
	return nil
}
