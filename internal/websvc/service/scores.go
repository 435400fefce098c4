package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	log "github.com/sirupsen/logrus"
)

const (
	MaxScore      = 10_000_000
	MaxNameLen    = 16
	AnonymousName = "anon"
)

var (
	slugRe     = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)
	nameDropRe = regexp.MustCompile(`[^A-Za-z0-9 _.-]`)
)

// ScoreBoard is the sorted set backend behind the leaderboards.
type ScoreBoard interface {
	Configured() bool
	Add(ctx context.Context, slug, name string, score int64) error
	Top(ctx context.Context, slug string) ([]models.ScoreEntry, error)
}

type ScoreService struct {
	board ScoreBoard
}

func NewScoreService(board ScoreBoard) *ScoreService {
	return &ScoreService{board: board}
}

func ValidSlug(slug string) bool {
	return slugRe.MatchString(slug)
}

// SanitizeName keeps [A-Za-z0-9 _.-], trims, caps at 16 chars and falls back
// to "anon".
func SanitizeName(name string) string {
	name = strings.TrimSpace(nameDropRe.ReplaceAllString(name, ""))
	if len(name) > MaxNameLen {
		name = strings.TrimSpace(name[:MaxNameLen])
	}
	if name == "" {
		return AnonymousName
	}
	return name
}

// ClampScore floors the score into [0, MaxScore].
func ClampScore(score float64) int64 {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return int64(math.Floor(score))
}

// Save records a score. It reports whether the score was persisted; an
// unconfigured backend is not an error.
func (s *ScoreService) Save(ctx context.Context, slug, name string, score *float64) (bool, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return false, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}
	if !ValidSlug(slug) {
		return false, fmt.Errorf("%w: invalid slug", ErrInvalidInput)
	}
	if score == nil || math.IsNaN(*score) || math.IsInf(*score, 0) {
		return false, fmt.Errorf("%w: score must be a finite number", ErrInvalidInput)
	}

	if s.board == nil || !s.board.Configured() {
		log.Debugf("leaderboard backend not configured, dropping score for %s", slug)
		return false, nil
	}

	if err := s.board.Add(ctx, slug, SanitizeName(name), ClampScore(*score)); err != nil {
		return false, err
	}
	return true, nil
}

// Top never fails: an unconfigured or failing backend yields an empty list.
func (s *ScoreService) Top(ctx context.Context, slug string) ([]models.ScoreEntry, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}

	empty := []models.ScoreEntry{}
	if s.board == nil || !s.board.Configured() || !ValidSlug(slug) {
		return empty, nil
	}

	top, err := s.board.Top(ctx, slug)
	if err != nil {
		log.Warnf("[ScoreService.Top] %s", err)
		return empty, nil
	}
	if top == nil {
		return empty, nil
	}
	return top, nil
}
