package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/avvvet/kidzone-services/internal/websvc/store"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	ChallengeBoard   = "tables-challenge"
	maxSessionFacts  = 30
	practiceDefault  = 10
	challengeDefault = 20

	// MaxAnswer bounds typed answers.
	MaxAnswer    = 9999
	maxElapsedMs = int(time.Hour / time.Millisecond)
)

type SessionStorer interface {
	CreateSession(ctx context.Context, sess models.Session) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	EndSession(ctx context.Context, id string, score store.ScoreFunc) (*models.SessionClose, error)
	CloseStale(ctx context.Context, cutoff time.Time) (int64, error)
	ListProgress(ctx context.Context, userID int64) ([]models.FactProgress, error)
	ApplyAttempt(ctx context.Context, userID int64, sessionID string, fact models.Fact, decide store.AttemptFunc) (*models.Attempt, *models.FactProgress, error)
	Stats(ctx context.Context, sessionID string) (models.SessionStats, error)
}

type AttemptResult struct {
	Correct  bool       `json:"correct"`
	Expected int        `json:"expected"`
	Reward   RewardKind `json:"reward"`
	Coins    int        `json:"coins"`
	Box      int        `json:"box"`
	Progress int        `json:"progress"`
}

type SessionResult struct {
	SessionID string              `json:"session_id"`
	Mode      string              `json:"mode"`
	Score     int                 `json:"score"`
	Accuracy  float64             `json:"accuracy"`
	Stats     models.SessionStats `json:"stats"`
	EndedAt   time.Time           `json:"ended_at"`
}

type TableProgress struct {
	Table    int `json:"table"`
	Percent  int `json:"percent"`
	Mastered int `json:"mastered"`
}

// TablesService schedules times tables practice with Leitner boxes.
type TablesService struct {
	sessions SessionStorer
	scores   *ScoreService
	now      func() time.Time

	mu   sync.Mutex
	rand *rand.Rand
}

func NewTablesService(sessions SessionStorer, scores *ScoreService) *TablesService {
	return &TablesService{
		sessions: sessions,
		scores:   scores,
		now:      time.Now,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func normalizeTables(tables []int) ([]int, error) {
	if len(tables) == 0 {
		all := make([]int, 0, MaxFactor)
		for t := MinFactor; t <= MaxFactor; t++ {
			all = append(all, t)
		}
		return all, nil
	}

	seen := map[int]bool{}
	var out []int
	for _, t := range tables {
		if !validFactor(t) {
			return nil, fmt.Errorf("%w: table %d out of range", ErrInvalidInput, t)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out, nil
}

// selectTargets orders candidates: due facts by due time, then unseen facts,
// then the rest by lowest box.
func selectTargets(tables []int, progress []models.FactProgress, count int, now time.Time, rnd *rand.Rand) []models.Fact {
	byFact := make(map[models.Fact]models.FactProgress, len(progress))
	for _, p := range progress {
		byFact[p.Fact] = p
	}

	var due, fresh, rest []models.FactProgress
	for _, a := range tables {
		for b := MinFactor; b <= MaxFactor; b++ {
			f := models.Fact{A: a, B: b}
			p, ok := byFact[f]
			switch {
			case !ok || !p.Seen:
				fresh = append(fresh, models.FactProgress{Fact: f})
			case !p.DueAt.After(now):
				due = append(due, p)
			default:
				rest = append(rest, p)
			}
		}
	}

	sort.SliceStable(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].Box != rest[j].Box {
			return rest[i].Box < rest[j].Box
		}
		return rest[i].DueAt.Before(rest[j].DueAt)
	})

	ordered := append(append(due, fresh...), rest...)
	if count > len(ordered) {
		count = len(ordered)
	}

	targets := make([]models.Fact, 0, count)
	for _, p := range ordered[:count] {
		targets = append(targets, p.Fact)
	}
	rnd.Shuffle(len(targets), func(i, j int) { targets[i], targets[j] = targets[j], targets[i] })
	return targets
}

// CreateSessionWithTargets starts a session and picks the facts to practice.
func (s *TablesService) CreateSessionWithTargets(ctx context.Context, userID int64, mode string, tables []int, count int) (*models.Session, error) {
	mode = strings.ToUpper(strings.TrimSpace(mode))
	if mode == "" {
		mode = models.ModePractice
	}
	if mode != models.ModePractice && mode != models.ModeChallenge {
		return nil, fmt.Errorf("%w: mode must be PRACTICE or CHALLENGE", ErrInvalidInput)
	}

	tables, err := normalizeTables(tables)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		count = practiceDefault
		if mode == models.ModeChallenge {
			count = challengeDefault
		}
	}
	if count < 1 || count > maxSessionFacts {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidInput, maxSessionFacts)
	}

	progress, err := s.sessions.ListProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	s.mu.Lock()
	targets := selectTargets(tables, progress, count, s.now(), s.rand)
	s.mu.Unlock()

	return s.sessions.CreateSession(ctx, models.Session{
		ID:      uuid.NewString(),
		UserID:  userID,
		Mode:    mode,
		Targets: targets,
	})
}

func (s *TablesService) ownedSession(ctx context.Context, userID int64, sessionID string) (*models.Session, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, store.ErrNotFound
	}
	return sess, nil
}

// grade advances or resets the Leitner box and classifies the reward.
func grade(p models.FactProgress, correct bool, now time.Time) (models.FactProgress, RewardKind) {
	next := p
	if !correct {
		next.Box = 1
		next.Streak = 0
		next.DueAt = NextDue(next.Box, now)
		return next, NoReward
	}

	next.Box++
	if next.Box > MaxBox {
		next.Box = MaxBox
	}
	next.Streak++
	next.DueAt = NextDue(next.Box, now)

	switch {
	case p.MasteredAt != nil:
		return next, ReviewCorrect
	case next.Box >= MasteredBox:
		masteredAt := now
		next.MasteredAt = &masteredAt
		return next, FirstMastery
	default:
		return next, NoReward
	}
}

// RecordAttempt grades an answer, updates the schedule and credits coins.
func (s *TablesService) RecordAttempt(ctx context.Context, userID int64, sessionID string, a, b, answer, elapsedMs int) (*AttemptResult, error) {
	if !validFactor(a) || !validFactor(b) {
		return nil, fmt.Errorf("%w: factors must be between %d and %d", ErrInvalidInput, MinFactor, MaxFactor)
	}
	if answer < 0 || answer > MaxAnswer {
		return nil, fmt.Errorf("%w: answer must be between 0 and %d", ErrInvalidInput, MaxAnswer)
	}

	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Open() {
		return nil, fmt.Errorf("%w: session already ended", ErrConflict)
	}

	fact := models.Fact{A: a, B: b}
	inSession := false
	for _, t := range sess.Targets {
		if t == fact {
			inSession = true
			break
		}
	}
	if !inSession {
		return nil, fmt.Errorf("%w: %d x %d is not part of this session", ErrInvalidInput, a, b)
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	if elapsedMs > maxElapsedMs {
		elapsedMs = maxElapsedMs
	}

	correct := answer == fact.Product()
	var kind RewardKind
	now := s.now()
	_, progress, err := s.sessions.ApplyAttempt(ctx, userID, sessionID, fact,
		func(p models.FactProgress) (models.FactProgress, models.Attempt, int) {
			var next models.FactProgress
			next, kind = grade(p, correct, now)
			return next, models.Attempt{
				Fact:      fact,
				Answer:    answer,
				Correct:   correct,
				ElapsedMs: elapsedMs,
				Reward:    string(kind),
			}, CoinsFor(RewardEvent{Kind: kind})
		})
	if errors.Is(err, store.ErrSessionClosed) {
		return nil, fmt.Errorf("%w: session already ended", ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	return &AttemptResult{
		Correct:  correct,
		Expected: fact.Product(),
		Reward:   kind,
		Coins:    CoinsFor(RewardEvent{Kind: kind}),
		Box:      progress.Box,
		Progress: ProgressPercent(progress.Box),
	}, nil
}

func accuracy(st models.SessionStats) float64 {
	if st.Attempts == 0 {
		return 0
	}
	return float64(st.Correct) / float64(st.Attempts)
}

// EndSession scores and closes the session. Ending an already closed
// session returns the stored result.
func (s *TablesService) EndSession(ctx context.Context, userID int64, displayName, sessionID string) (*SessionResult, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.Open() {
		return s.storedResult(ctx, sess)
	}

	closed, err := s.sessions.EndSession(ctx, sessionID, func(st models.SessionStats) int {
		return SessionScore(accuracy(st), st.UniqueMastered, DefaultBase)
	})
	if errors.Is(err, store.ErrSessionClosed) {
		// closed by a concurrent call
		sess, err = s.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return s.storedResult(ctx, sess)
	}
	if err != nil {
		return nil, err
	}

	result := &SessionResult{
		SessionID: sess.ID,
		Mode:      sess.Mode,
		Score:     closed.Score,
		Accuracy:  accuracy(closed.Stats),
		Stats:     closed.Stats,
		EndedAt:   closed.EndedAt,
	}
	if sess.Mode == models.ModeChallenge && s.scores != nil && closed.Stats.Attempts > 0 {
		score := float64(result.Score)
		if _, err := s.scores.Save(ctx, ChallengeBoard, displayName, &score); err != nil {
			log.Warnf("[TablesService.EndSession] leaderboard save failed: %s", err)
		}
	}
	return result, nil
}

func (s *TablesService) storedResult(ctx context.Context, sess *models.Session) (*SessionResult, error) {
	stats, err := s.sessions.Stats(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	result := &SessionResult{
		SessionID: sess.ID,
		Mode:      sess.Mode,
		Accuracy:  accuracy(stats),
		Stats:     stats,
	}
	if sess.Score != nil {
		result.Score = *sess.Score
	}
	if sess.EndedAt != nil {
		result.EndedAt = *sess.EndedAt
	}
	return result, nil
}

// Progress returns the mean box percentage of each table.
func (s *TablesService) Progress(ctx context.Context, userID int64) ([]TableProgress, error) {
	progress, err := s.sessions.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	sums := map[int]int{}
	mastered := map[int]int{}
	for _, p := range progress {
		sums[p.Fact.A] += ProgressPercent(p.Box)
		if p.MasteredAt != nil {
			mastered[p.Fact.A]++
		}
	}

	out := make([]TableProgress, 0, MaxFactor)
	for t := MinFactor; t <= MaxFactor; t++ {
		out = append(out, TableProgress{
			Table:    t,
			Percent:  sums[t] / MaxFactor,
			Mastered: mastered[t],
		})
	}
	return out, nil
}

// SweepStale closes sessions that were abandoned without an end call.
func (s *TablesService) SweepStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.sessions.CloseStale(ctx, s.now().Add(-olderThan))
}
