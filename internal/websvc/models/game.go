package models

// Game is a catalog entry shown on the games page.
type Game struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	MinAge      int    `json:"min_age"`
	MaxAge      int    `json:"max_age"`
	Path        string `json:"path"`
	Community   bool   `json:"community,omitempty"`
}

// Friend is an imaginary friend persona kids can chat with.
type Friend struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Emoji   string `json:"emoji"`
	Tagline string `json:"tagline"`
	Persona string `json:"-"`
}

type ChatTurn struct {
	Role    string `json:"role"` // "user" or "friend"
	Content string `json:"content"`
}
