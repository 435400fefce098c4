package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
)

const (
	maxTitleLen  = 80
	maxCodeBytes = 512 << 10
	maxNotesLen  = 1000
	listLimit    = 100
)

type SubmissionStorer interface {
	Create(ctx context.Context, sub models.GameSubmission) (*models.GameSubmission, error)
	GetByID(ctx context.Context, id int64) (*models.GameSubmission, error)
	Moderate(ctx context.Context, id int64, status, reviewer, notes string) (*models.GameSubmission, error)
	LatestApproved(ctx context.Context, slug string) (*models.GameSubmission, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*models.GameSubmission, error)
}

type SubmissionService struct {
	store  SubmissionStorer
	events EventPublisher
}

func NewSubmissionService(store SubmissionStorer, events EventPublisher) *SubmissionService {
	return &SubmissionService{store: store, events: events}
}

// Create queues a user made game for review.
func (s *SubmissionService) Create(ctx context.Context, userID int64, slug, title, code string) (*models.GameSubmission, error) {
	slug = strings.TrimSpace(slug)
	title = strings.TrimSpace(title)
	if !ValidSlug(slug) {
		return nil, fmt.Errorf("%w: invalid slug", ErrInvalidInput)
	}
	if title == "" || len(title) > maxTitleLen {
		return nil, fmt.Errorf("%w: title must be 1 to %d characters", ErrInvalidInput, maxTitleLen)
	}
	if strings.TrimSpace(code) == "" || len(code) > maxCodeBytes {
		return nil, fmt.Errorf("%w: code must be between 1 byte and %d KiB", ErrInvalidInput, maxCodeBytes>>10)
	}

	sub, err := s.store.Create(ctx, models.GameSubmission{
		GameSlug:      slug,
		GameTitle:     title,
		Status:        models.SubmissionPending,
		GeneratedCode: code,
		SubmittedBy:   &userID,
	})
	if err != nil {
		return nil, err
	}
	publish(s.events, "submission.created", &userID, map[string]interface{}{"id": sub.ID, "slug": slug})
	return sub, nil
}

func (s *SubmissionService) Approve(ctx context.Context, id int64, reviewer, notes string) (*models.GameSubmission, error) {
	return s.moderate(ctx, id, models.SubmissionApproved, reviewer, notes)
}

func (s *SubmissionService) Reject(ctx context.Context, id int64, reviewer, notes string) (*models.GameSubmission, error) {
	return s.moderate(ctx, id, models.SubmissionRejected, reviewer, notes)
}

func (s *SubmissionService) moderate(ctx context.Context, id int64, status, reviewer, notes string) (*models.GameSubmission, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid submission id", ErrInvalidInput)
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLen {
		return nil, fmt.Errorf("%w: notes longer than %d characters", ErrInvalidInput, maxNotesLen)
	}

	sub, err := s.store.Moderate(ctx, id, status, reviewer, notes)
	if err != nil {
		return nil, err
	}
	publish(s.events, "submission."+status, nil, map[string]interface{}{
		"id":       sub.ID,
		"slug":     sub.GameSlug,
		"reviewer": reviewer,
	})
	return sub, nil
}

// List returns submissions in the given status, or all of them when status
// is empty.
func (s *SubmissionService) List(ctx context.Context, status string) ([]*models.GameSubmission, error) {
	if status != "" && !models.ValidSubmissionStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	subs, err := s.store.ListByStatus(ctx, status, listLimit)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []*models.GameSubmission{}
	}
	return subs, nil
}

// Demo returns the HTML of the latest approved submission for slug.
func (s *SubmissionService) Demo(ctx context.Context, slug string) (string, error) {
	if !ValidSlug(slug) {
		return "", fmt.Errorf("%w: invalid slug", ErrInvalidInput)
	}
	sub, err := s.store.LatestApproved(ctx, slug)
	if err != nil {
		return "", err
	}
	return sub.GeneratedCode, nil
}
