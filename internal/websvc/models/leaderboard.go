package models

type ScoreEntry struct {
	Name  string `json:"name"`
	Score int64  `json:"score"`
}
