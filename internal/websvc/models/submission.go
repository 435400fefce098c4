package models

import "time"

const (
	SubmissionPending  = "pending"
	SubmissionBuilding = "building"
	SubmissionReview   = "review"
	SubmissionApproved = "approved"
	SubmissionRejected = "rejected"
	SubmissionLive     = "live"
)

func ValidSubmissionStatus(s string) bool {
	switch s {
	case SubmissionPending, SubmissionBuilding, SubmissionReview,
		SubmissionApproved, SubmissionRejected, SubmissionLive:
		return true
	}
	return false
}

// GameSubmission is a user proposed game waiting for moderation.
type GameSubmission struct {
	ID            int64      `json:"id"`
	GameSlug      string     `json:"game_slug"`
	GameTitle     string     `json:"game_title"`
	Status        string     `json:"status"`
	GeneratedCode string     `json:"generated_code,omitempty"` // full HTML document
	SubmittedBy   *int64     `json:"submitted_by,omitempty"`
	ApprovedBy    *string    `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	ReviewNotes   *string    `json:"review_notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
