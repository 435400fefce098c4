package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

// AttemptFunc decides the outcome of an attempt given the locked progress row.
// It returns the new progress, the attempt to store and the coins to credit.
type AttemptFunc func(p models.FactProgress) (models.FactProgress, models.Attempt, int)

func (s *SessionStore) CreateSession(ctx context.Context, sess models.Session) (*models.Session, error) {
	uid, err := uuid.Parse(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", sess.ID, err)
	}
	targets, err := json.Marshal(sess.Targets)
	if err != nil {
		return nil, fmt.Errorf("marshal targets: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO table_sessions (id, user_id, mode, targets)
		VALUES ($1, $2, $3, $4)
		RETURNING started_at`,
		uid, sess.UserID, sess.Mode, targets,
	).Scan(&sess.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	sess := &models.Session{}
	var targets []byte
	err = s.db.QueryRow(ctx, `
		SELECT id::text, user_id, mode, targets, score, started_at, ended_at
		FROM table_sessions
		WHERE id = $1`, uid,
	).Scan(
		&sess.ID,
		&sess.UserID,
		&sess.Mode,
		&targets,
		&sess.Score,
		&sess.StartedAt,
		&sess.EndedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := json.Unmarshal(targets, &sess.Targets); err != nil {
		return nil, fmt.Errorf("decode targets of session %s: %w", id, err)
	}
	return sess, nil
}

// ScoreFunc turns the final attempt aggregate into the stored score.
type ScoreFunc func(st models.SessionStats) int

// EndSession locks the open session, aggregates its attempts, scores them and
// closes it in one transaction. A session that is already closed returns
// ErrSessionClosed.
func (s *SessionStore) EndSession(ctx context.Context, id string, score ScoreFunc) (*models.SessionClose, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var endedAt *time.Time
	err = tx.QueryRow(ctx, `
		SELECT ended_at FROM table_sessions
		WHERE id = $1
		FOR UPDATE`, uid,
	).Scan(&endedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if endedAt != nil {
		return nil, ErrSessionClosed
	}

	st, err := sessionStats(ctx, tx, uid)
	if err != nil {
		return nil, err
	}

	closed := &models.SessionClose{Stats: st, Score: score(st)}
	err = tx.QueryRow(ctx, `
		UPDATE table_sessions
		SET ended_at = now(), score = $2
		WHERE id = $1
		RETURNING ended_at`, uid, closed.Score,
	).Scan(&closed.EndedAt)
	if err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return closed, nil
}

// CloseStale ends sessions left open since before cutoff without scoring them.
func (s *SessionStore) CloseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE table_sessions
		SET ended_at = now()
		WHERE ended_at IS NULL AND started_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("close stale sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *SessionStore) ListProgress(ctx context.Context, userID int64) ([]models.FactProgress, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a, b, box, streak, due_at, mastered_at
		FROM fact_progress
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FactProgress
	for rows.Next() {
		p := models.FactProgress{UserID: userID, Seen: true}
		if err := rows.Scan(&p.Fact.A, &p.Fact.B, &p.Box, &p.Streak, &p.DueAt, &p.MasteredAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ApplyAttempt locks the progress row of the fact, lets decide compute the
// outcome and stores attempt, progress and coins in one transaction.
func (s *SessionStore) ApplyAttempt(ctx context.Context, userID int64, sessionID string, fact models.Fact, decide AttemptFunc) (*models.Attempt, *models.FactProgress, error) {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// an open session blocks EndSession until this attempt is committed
	var open int
	err = tx.QueryRow(ctx, `
		SELECT 1 FROM table_sessions
		WHERE id = $1 AND user_id = $2 AND ended_at IS NULL
		FOR SHARE`, sid, userID,
	).Scan(&open)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrSessionClosed
		}
		return nil, nil, fmt.Errorf("lock session: %w", err)
	}

	// make sure the row exists so it can be locked
	if _, err := tx.Exec(ctx, `
		INSERT INTO fact_progress (user_id, a, b)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, a, b) DO NOTHING`, userID, fact.A, fact.B); err != nil {
		return nil, nil, fmt.Errorf("ensure progress row: %w", err)
	}

	current := models.FactProgress{UserID: userID, Fact: fact}
	var attemptsSeen int
	err = tx.QueryRow(ctx, `
		SELECT box, streak, due_at, mastered_at,
		       (SELECT count(*) FROM table_attempts t
		        JOIN table_sessions s ON s.id = t.session_id
		        WHERE s.user_id = $1 AND t.a = $2 AND t.b = $3)
		FROM fact_progress
		WHERE user_id = $1 AND a = $2 AND b = $3
		FOR UPDATE`, userID, fact.A, fact.B,
	).Scan(&current.Box, &current.Streak, &current.DueAt, &current.MasteredAt, &attemptsSeen)
	if err != nil {
		return nil, nil, fmt.Errorf("lock progress row: %w", err)
	}
	current.Seen = attemptsSeen > 0

	next, attempt, coins := decide(current)
	attempt.SessionID = sessionID

	if _, err := tx.Exec(ctx, `
		UPDATE fact_progress
		SET box = $4, streak = $5, due_at = $6, mastered_at = $7, updated_at = now()
		WHERE user_id = $1 AND a = $2 AND b = $3`,
		userID, fact.A, fact.B, next.Box, next.Streak, next.DueAt, next.MasteredAt); err != nil {
		return nil, nil, fmt.Errorf("update progress: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO table_attempts (session_id, a, b, answer, correct, elapsed_ms, reward)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		sid, fact.A, fact.B, attempt.Answer, attempt.Correct, attempt.ElapsedMs, attempt.Reward,
	).Scan(&attempt.ID, &attempt.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert attempt: %w", err)
	}

	if coins > 0 {
		if err := creditTx(ctx, tx, userID, int64(coins), "attempt:"+fmt.Sprint(attempt.ID)); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}
	return &attempt, &next, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stats aggregates the attempts of a session.
func (s *SessionStore) Stats(ctx context.Context, sessionID string) (models.SessionStats, error) {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return models.SessionStats{}, ErrNotFound
	}
	return sessionStats(ctx, s.db, sid)
}

// sessionStats counts a fact as mastered when it was answered correctly in
// the session and is mastered now.
func sessionStats(ctx context.Context, q rowQuerier, sid uuid.UUID) (models.SessionStats, error) {
	var st models.SessionStats
	err := q.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE t.correct),
			count(DISTINCT (t.a, t.b)) FILTER (WHERE t.correct AND f.mastered_at IS NOT NULL)
		FROM table_attempts t
		JOIN table_sessions s ON s.id = t.session_id
		LEFT JOIN fact_progress f ON f.user_id = s.user_id AND f.a = t.a AND f.b = t.b
		WHERE t.session_id = $1`, sid,
	).Scan(&st.Attempts, &st.Correct, &st.UniqueMastered)
	if err != nil {
		return models.SessionStats{}, fmt.Errorf("session stats: %w", err)
	}
	return st, nil
}
