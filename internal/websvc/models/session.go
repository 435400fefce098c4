package models

import "time"

const (
	ModePractice  = "PRACTICE"
	ModeChallenge = "CHALLENGE"
)

// Fact is a single multiplication pair a x b.
type Fact struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (f Fact) Product() int {
	return f.A * f.B
}

// Session is one practice or challenge run of the tables module.
type Session struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"user_id"`
	Mode      string     `json:"mode"`
	Targets   []Fact     `json:"targets"`
	Score     *int       `json:"score,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (s *Session) Open() bool {
	return s.EndedAt == nil
}

// FactProgress is the per user scheduling state of a fact.
type FactProgress struct {
	UserID     int64      `json:"user_id"`
	Fact       Fact       `json:"fact"`
	Box        int        `json:"box"` // Leitner box 0 (new) .. 5
	Streak     int        `json:"streak"`
	DueAt      time.Time  `json:"due_at"`
	MasteredAt *time.Time `json:"mastered_at,omitempty"`
	Seen       bool       `json:"-"` // false when no row exists yet
}

type Attempt struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Fact      Fact      `json:"fact"`
	Answer    int       `json:"answer"`
	Correct   bool      `json:"correct"`
	ElapsedMs int       `json:"elapsed_ms"`
	Reward    string    `json:"reward"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStats is the aggregate used to score a finished session.
type SessionStats struct {
	Attempts       int `json:"attempts"`
	Correct        int `json:"correct"`
	UniqueMastered int `json:"unique_mastered"`
}

// SessionClose is what ending a session stored.
type SessionClose struct {
	Stats   SessionStats
	Score   int
	EndedAt time.Time
}
