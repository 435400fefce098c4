package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeScoreBoard struct {
	NotConfigured bool
	AddFunc       func(ctx context.Context, slug, name string, score int64) error
	TopFunc       func(ctx context.Context, slug string) ([]models.ScoreEntry, error)
}

func (f *FakeScoreBoard) Configured() bool { return !f.NotConfigured }

func (f *FakeScoreBoard) Add(ctx context.Context, slug, name string, score int64) error {
	if f.AddFunc != nil {
		return f.AddFunc(ctx, slug, name, score)
	}
	return nil
}

func (f *FakeScoreBoard) Top(ctx context.Context, slug string) ([]models.ScoreEntry, error) {
	if f.TopFunc != nil {
		return f.TopFunc(ctx, slug)
	}
	return nil, nil
}

func ptr(f float64) *float64 { return &f }

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Ada", "Ada"},
		{"strips disallowed", "<b>Zoë!</b>", "bZob"},
		{"keeps allowed punctuation", "a_b.c-d e", "a_b.c-d e"},
		{"truncates to sixteen", "abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnop"},
		{"empty is anon", "", "anon"},
		{"whitespace is anon", "   \t ", "anon"},
		{"only junk is anon", "%%%***", "anon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, int64(MaxScore), ClampScore(10_000_001))
	assert.Equal(t, int64(0), ClampScore(-5))
	assert.Equal(t, int64(41), ClampScore(41.99))
}

func TestScoreService_Save(t *testing.T) {
	tests := []struct {
		name      string
		board     *FakeScoreBoard
		slug      string
		userName  string
		score     *float64
		wantSaved bool
		wantErr   error
		wantName  string
		wantScore int64
	}{
		{
			name:      "clamps and sanitizes",
			board:     &FakeScoreBoard{},
			slug:      "space-race",
			userName:  "Super<Kid>With A Long Name",
			score:     ptr(10_000_001),
			wantSaved: true,
			wantName:  "SuperKidWith A L",
			wantScore: MaxScore,
		},
		{
			name:      "blank name stored as anon",
			board:     &FakeScoreBoard{},
			slug:      "maze",
			userName:  "   ",
			score:     ptr(12.7),
			wantSaved: true,
			wantName:  "anon",
			wantScore: 12,
		},
		{
			name:    "missing slug",
			board:   &FakeScoreBoard{},
			score:   ptr(1),
			wantErr: ErrInvalidInput,
		},
		{
			name:    "missing score",
			board:   &FakeScoreBoard{},
			slug:    "maze",
			wantErr: ErrInvalidInput,
		},
		{
			name:    "infinite score",
			board:   &FakeScoreBoard{},
			slug:    "maze",
			score:   ptr(math.Inf(1)),
			wantErr: ErrInvalidInput,
		},
		{
			name:      "unconfigured backend is a silent no-op",
			board:     &FakeScoreBoard{NotConfigured: true},
			slug:      "maze",
			score:     ptr(5),
			wantSaved: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotName string
			var gotScore int64
			tt.board.AddFunc = func(ctx context.Context, slug, name string, score int64) error {
				gotName, gotScore = name, score
				return nil
			}

			saved, err := NewScoreService(tt.board).Save(context.Background(), tt.slug, tt.userName, tt.score)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSaved, saved)
			if tt.wantSaved {
				assert.Equal(t, tt.wantName, gotName)
				assert.Equal(t, tt.wantScore, gotScore)
			}
		})
	}
}

func TestScoreService_TopFailsOpen(t *testing.T) {
	ctx := context.Background()

	top, err := NewScoreService(&FakeScoreBoard{NotConfigured: true}).Top(ctx, "maze")
	require.NoError(t, err)
	assert.NotNil(t, top)
	assert.Empty(t, top)

	failing := &FakeScoreBoard{TopFunc: func(ctx context.Context, slug string) ([]models.ScoreEntry, error) {
		return nil, errors.New("connection refused")
	}}
	top, err = NewScoreService(failing).Top(ctx, "maze")
	require.NoError(t, err)
	assert.Empty(t, top)

	_, err = NewScoreService(failing).Top(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
