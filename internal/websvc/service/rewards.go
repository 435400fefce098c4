package service

import (
	"math"
	"time"
)

type RewardKind string

const (
	FirstMastery  RewardKind = "FIRST_MASTERY"
	ReviewCorrect RewardKind = "REVIEW_CORRECT"
	NoReward      RewardKind = "NO_REWARD"
)

// RewardEvent is what an attempt earned.
type RewardEvent struct {
	Kind RewardKind `json:"kind"`
}

const DefaultBase = 100

// CoinsFor returns the fixed coin amount of a reward event.
func CoinsFor(e RewardEvent) int {
	switch e.Kind {
	case FirstMastery:
		return 200
	case ReviewCorrect:
		return 10
	default:
		return 0
	}
}

// SessionScore is base * accuracy^2 * sqrt(uniqueMastered), rounded.
// accuracy is clamped to [0,1] and uniqueMastered floored at 1.
func SessionScore(accuracy float64, uniqueMastered int, base int) int {
	if math.IsNaN(accuracy) || accuracy < 0 {
		accuracy = 0
	}
	if accuracy > 1 {
		accuracy = 1
	}
	if uniqueMastered < 1 {
		uniqueMastered = 1
	}
	return int(math.Round(float64(base) * accuracy * accuracy * math.Sqrt(float64(uniqueMastered))))
}

const (
	MaxBox      = 5
	MasteredBox = 3
)

var progressByBox = [MaxBox + 1]int{0, 20, 40, 60, 80, 100}

// ProgressPercent maps a Leitner box to a progress bar percentage.
func ProgressPercent(box int) int {
	if box < 0 {
		box = 0
	}
	if box > MaxBox {
		box = MaxBox
	}
	return progressByBox[box]
}

var reviewInterval = [MaxBox + 1]time.Duration{
	0,
	time.Minute,
	10 * time.Minute,
	24 * time.Hour,
	3 * 24 * time.Hour,
	7 * 24 * time.Hour,
}

// NextDue is when a fact sitting in box should be asked again.
func NextDue(box int, now time.Time) time.Time {
	if box < 0 {
		box = 0
	}
	if box > MaxBox {
		box = MaxBox
	}
	return now.Add(reviewInterval[box])
}
