package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubmissionStore struct {
	db *pgxpool.Pool
}

func NewSubmissionStore(db *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{db: db}
}

const submissionColumns = `id, game_slug, game_title, status, generated_code, submitted_by,
		approved_by, approved_at, review_notes, created_at, updated_at`

func scanSubmission(row pgx.Row) (*models.GameSubmission, error) {
	s := &models.GameSubmission{}
	err := row.Scan(
		&s.ID,
		&s.GameSlug,
		&s.GameTitle,
		&s.Status,
		&s.GeneratedCode,
		&s.SubmittedBy,
		&s.ApprovedBy,
		&s.ApprovedAt,
		&s.ReviewNotes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

func (s *SubmissionStore) Create(ctx context.Context, sub models.GameSubmission) (*models.GameSubmission, error) {
	query := `
		INSERT INTO game_submissions (game_slug, game_title, status, generated_code, submitted_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + submissionColumns

	created, err := scanSubmission(s.db.QueryRow(ctx, query,
		sub.GameSlug, sub.GameTitle, sub.Status, sub.GeneratedCode, sub.SubmittedBy))
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return created, nil
}

func (s *SubmissionStore) GetByID(ctx context.Context, id int64) (*models.GameSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM game_submissions WHERE id = $1`
	return scanSubmission(s.db.QueryRow(ctx, query, id))
}

// Moderate sets the review outcome. approvedBy/approvedAt are only written
// when the new status is approved.
func (s *SubmissionStore) Moderate(ctx context.Context, id int64, status, reviewer, notes string) (*models.GameSubmission, error) {
	query := `
		UPDATE game_submissions
		SET status = $2,
		    approved_by = CASE WHEN $2 = 'approved' THEN $3 ELSE approved_by END,
		    approved_at = CASE WHEN $2 = 'approved' THEN now() ELSE approved_at END,
		    review_notes = NULLIF($4, ''),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + submissionColumns

	sub, err := scanSubmission(s.db.QueryRow(ctx, query, id, status, reviewer, notes))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to moderate submission %d: %w", id, err)
	}
	return sub, nil
}

// LatestApproved returns the most recently approved submission for slug.
func (s *SubmissionStore) LatestApproved(ctx context.Context, slug string) (*models.GameSubmission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM game_submissions
		WHERE game_slug = $1 AND status = 'approved'
		ORDER BY approved_at DESC NULLS LAST, id DESC
		LIMIT 1`
	return scanSubmission(s.db.QueryRow(ctx, query, slug))
}

// ListByStatus returns submissions without their code body.
func (s *SubmissionStore) ListByStatus(ctx context.Context, status string, limit int) ([]*models.GameSubmission, error) {
	query := `
		SELECT id, game_slug, game_title, status, '' AS generated_code, submitted_by,
		       approved_by, approved_at, review_notes, created_at, updated_at
		FROM game_submissions
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.GameSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
