package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/avvvet/kidzone-services/internal/websvc/store"
	log "github.com/sirupsen/logrus"
)

var games = []models.Game{
	{Slug: "times-tables", Title: "Times Tables Trainer", Description: "Practice multiplication facts and earn coins.", Category: "math", MinAge: 6, MaxAge: 11, Path: "/tables"},
	{Slug: "number-ninja", Title: "Number Ninja", Description: "Slice the numbers that add up to the target.", Category: "math", MinAge: 6, MaxAge: 10, Path: "/games/number-ninja"},
	{Slug: "space-race", Title: "Space Race", Description: "Answer fast to fly your rocket past the planets.", Category: "math", MinAge: 7, MaxAge: 12, Path: "/games/space-race"},
	{Slug: "word-garden", Title: "Word Garden", Description: "Grow flowers by spelling words correctly.", Category: "reading", MinAge: 5, MaxAge: 9, Path: "/games/word-garden"},
	{Slug: "letter-lagoon", Title: "Letter Lagoon", Description: "Catch the fish carrying the missing letter.", Category: "reading", MinAge: 4, MaxAge: 7, Path: "/games/letter-lagoon"},
	{Slug: "shape-shifter", Title: "Shape Shifter", Description: "Rotate and fit shapes to fill the board.", Category: "logic", MinAge: 6, MaxAge: 12, Path: "/games/shape-shifter"},
	{Slug: "maze-muncher", Title: "Maze Muncher", Description: "Plan a path through the maze before time runs out.", Category: "logic", MinAge: 5, MaxAge: 10, Path: "/games/maze-muncher"},
	{Slug: "imaginary-friends", Title: "Imaginary Friends", Description: "Chat with a friendly character who loves questions.", Category: "creative", MinAge: 6, MaxAge: 12, Path: "/friends"},
}

type CatalogService struct {
	submissions SubmissionStorer
}

func NewCatalogService(submissions SubmissionStorer) *CatalogService {
	return &CatalogService{submissions: submissions}
}

// List returns the built-in games followed by approved community games,
// one entry per slug.
// A failing submission store only drops the community part.
func (s *CatalogService) List(ctx context.Context, category string) []models.Game {
	category = strings.ToLower(strings.TrimSpace(category))

	out := []models.Game{}
	for _, g := range games {
		if category == "" || g.Category == category {
			out = append(out, g)
		}
	}

	if s.submissions == nil || (category != "" && category != "community") {
		return out
	}
	approved, err := s.submissions.ListByStatus(ctx, models.SubmissionApproved, listLimit)
	if err != nil {
		log.Warnf("[CatalogService.List] community games unavailable: %s", err)
		return out
	}
	// approved is newest first, so the first row wins a slug.
	seen := make(map[string]bool, len(games)+len(approved))
	for _, g := range games {
		seen[g.Slug] = true
	}
	for _, sub := range approved {
		if seen[sub.GameSlug] {
			continue
		}
		seen[sub.GameSlug] = true
		out = append(out, communityGame(sub))
	}
	return out
}

func communityGame(sub *models.GameSubmission) models.Game {
	return models.Game{
		Slug:        sub.GameSlug,
		Title:       sub.GameTitle,
		Description: "Made by a KidZone player.",
		Category:    "community",
		MinAge:      5,
		MaxAge:      12,
		Path:        "/games/" + sub.GameSlug + "/demo",
		Community:   true,
	}
}

func (s *CatalogService) Get(ctx context.Context, slug string) (*models.Game, error) {
	if !ValidSlug(slug) {
		return nil, fmt.Errorf("%w: invalid slug", ErrInvalidInput)
	}
	for _, g := range games {
		if g.Slug == slug {
			game := g
			return &game, nil
		}
	}
	if s.submissions == nil {
		return nil, store.ErrNotFound
	}
	sub, err := s.submissions.LatestApproved(ctx, slug)
	if err != nil {
		return nil, err
	}
	game := communityGame(sub)
	return &game, nil
}
