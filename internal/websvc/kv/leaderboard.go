package kv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TopSize    = 5
	DefaultTTL = 30 * 24 * time.Hour
)

// Leaderboard keeps the best scores of each game in a sorted set lb:<slug>.
// A nil client means no backend is configured.
type Leaderboard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboard(client *redis.Client, ttl time.Duration) *Leaderboard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Leaderboard{client: client, ttl: ttl}
}

// Connect parses a redis:// url and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (l *Leaderboard) Configured() bool {
	return l != nil && l.client != nil
}

func key(slug string) string {
	return "lb:" + slug
}

// Add stores the score and trims the set to the top entries in one MULTI/EXEC.
func (l *Leaderboard) Add(ctx context.Context, slug, name string, score int64) error {
	// suffix keeps equal names from overwriting each other
	member := name + "#" + uuid.NewString()[:8]

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key(slug), redis.Z{Score: float64(score), Member: member})
	pipe.ZRemRangeByRank(ctx, key(slug), 0, -(TopSize + 1))
	pipe.Expire(ctx, key(slug), l.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard add %s: %w", slug, err)
	}
	return nil
}

// Top returns the best entries, highest score first.
func (l *Leaderboard) Top(ctx context.Context, slug string) ([]models.ScoreEntry, error) {
	zs, err := l.client.ZRevRangeWithScores(ctx, key(slug), 0, TopSize-1).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard top %s: %w", slug, err)
	}

	top := make([]models.ScoreEntry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		if i := strings.LastIndex(member, "#"); i >= 0 {
			member = member[:i]
		}
		top = append(top, models.ScoreEntry{Name: member, Score: int64(z.Score)})
	}
	return top, nil
}
