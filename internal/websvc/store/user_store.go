package store

import (
	"context"
	"fmt"

	"github.com/avvvet/kidzone-services/internal/websvc/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

func (r *UserStore) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	query := `
        INSERT INTO users (username, password_hash, display_name, is_admin)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at;
    `

	err := r.db.QueryRow(ctx, query, user.Username, user.PasswordHash, user.DisplayName, user.IsAdmin).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("could not create user: %w", mapErr(err))
	}

	return &user, nil
}

func (r *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `
        SELECT id, username, password_hash, display_name, is_admin, created_at
        FROM users
        WHERE username = $1
    `, username)
}

func (r *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `
        SELECT id, username, password_hash, display_name, is_admin, created_at
        FROM users
        WHERE id = $1
    `, id)
}

func (r *UserStore) SetAdmin(ctx context.Context, username string, admin bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_admin = $2 WHERE username = $1`, username, admin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserStore) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.DisplayName,
		&u.IsAdmin,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}

	return u, nil
}
