package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/avvvet/kidzone-services/internal/websvc/ai"
	"github.com/avvvet/kidzone-services/internal/websvc/models"
	log "github.com/sirupsen/logrus"
)

const (
	MinFactor = 1
	MaxFactor = 12
)

type Problem struct {
	Text   string `json:"text"`
	A      int    `json:"a"`
	B      int    `json:"b"`
	Answer int    `json:"answer"`
	Source string `json:"source"` // "ai" or "template"
}

// DeterministicHint picks a strategy hint for a x b without revealing the product.
func DeterministicHint(a, b int) string {
	// look at the friendlier factor first
	x, y := a, b
	for _, special := range []int{0, 1, 10, 2, 5, 9, 11} {
		if b == special {
			x, y = b, a
			break
		}
		if a == special {
			break
		}
	}

	switch {
	case x == 0:
		return fmt.Sprintf("Anything times 0 is 0, so %d x %d is 0!", a, b)
	case x == 1:
		return fmt.Sprintf("Times 1 keeps a number the same. What is %d x 1?", y)
	case x == 10:
		return fmt.Sprintf("Times 10? Put a zero on the end of %d.", y)
	case x == 2:
		return fmt.Sprintf("Times 2 means double it: %d + %d.", y, y)
	case x == 5:
		return fmt.Sprintf("Count by fives, %d times: 5, 10, 15 ...", y)
	case x == 9:
		return fmt.Sprintf("Nines trick: work out %d x 10, then take away %d.", y, y)
	case x == 11 && y <= 9:
		return fmt.Sprintf("For 11 x a single digit, write %d twice.", y)
	case a == b:
		return fmt.Sprintf("It's a square! Picture %d rows with %d dots in each row.", a, a)
	}

	big, small := a, b
	if small > big {
		big, small = small, big
	}
	return fmt.Sprintf("Break it up: %d x %d is %d x %d plus one more %d.", big, small, big, small-1, big)
}

var problemTemplates = []string{
	"%s has %d bags with %d marbles in each bag. How many marbles are there?",
	"%s plants %d rows of flowers with %d flowers in every row. How many flowers are there?",
	"There are %d spaceships and each one carries %d aliens. %s wants to know how many aliens there are in total.",
	"%s stacks %d towers of %d blocks. How many blocks is that?",
	"A dragon lays %d eggs every day for %d days. How many eggs does %s need to look after?",
	"%s buys %d packs of stickers with %d stickers in each pack. How many stickers does %s have?",
}

var problemNames = []string{"Mia", "Leo", "Ava", "Sam", "Zara", "Kai", "Nora", "Theo"}

// GenerateDeterministicProblem builds a word problem for a x b. The same
// pair always produces the same text.
func GenerateDeterministicProblem(a, b int) Problem {
	seed := a*31 + b
	if seed < 0 {
		seed = -seed
	}
	name := problemNames[seed%len(problemNames)]
	tmpl := seed % len(problemTemplates)

	var text string
	switch tmpl {
	case 2, 4:
		text = fmt.Sprintf(problemTemplates[tmpl], a, b, name)
	case 5:
		text = fmt.Sprintf(problemTemplates[tmpl], name, a, b, name)
	default:
		text = fmt.Sprintf(problemTemplates[tmpl], name, a, b)
	}

	return Problem{Text: text, A: a, B: b, Answer: a * b, Source: "template"}
}

type HintService struct {
	ai ai.Completer

	mu   sync.Mutex
	rand *rand.Rand
}

func NewHintService(completer ai.Completer, seed int64) *HintService {
	return &HintService{ai: completer, rand: rand.New(rand.NewSource(seed))}
}

func validFactor(n int) bool {
	return n >= MinFactor && n <= MaxFactor
}

// Hint asks the AI for a kid friendly tip and falls back to DeterministicHint.
func (s *HintService) Hint(ctx context.Context, a, b int) (string, error) {
	if !validFactor(a) || !validFactor(b) {
		return "", fmt.Errorf("%w: factors must be between %d and %d", ErrInvalidInput, MinFactor, MaxFactor)
	}
	if s.ai == nil {
		return DeterministicHint(a, b), nil
	}

	system := "You help children aged 6 to 10 learn their times tables. " +
		"Give one short, friendly hint (max 2 sentences). Never say the answer."
	reply, err := s.ai.Complete(ctx, system, []models.ChatTurn{
		{Role: "user", Content: fmt.Sprintf("Give me a hint for %d x %d.", a, b)},
	})
	if err != nil {
		log.Warnf("[HintService.Hint] ai unavailable, using template: %s", err)
		return DeterministicHint(a, b), nil
	}
	return reply, nil
}

// Problem returns a word problem for the table. The second factor is random.
func (s *HintService) Problem(ctx context.Context, table int) (Problem, error) {
	if !validFactor(table) {
		return Problem{}, fmt.Errorf("%w: table must be between %d and %d", ErrInvalidInput, MinFactor, MaxFactor)
	}
	s.mu.Lock()
	b := MinFactor + s.rand.Intn(MaxFactor)
	s.mu.Unlock()

	p := GenerateDeterministicProblem(table, b)
	if s.ai == nil {
		return p, nil
	}

	system := "You write one short multiplication word problem for children aged 6 to 10. " +
		"Use the exact numbers given, keep it under 35 words and do not include the answer."
	text, err := s.ai.Complete(ctx, system, []models.ChatTurn{
		{Role: "user", Content: fmt.Sprintf("Numbers: %d and %d.", table, b)},
	})
	if err != nil {
		log.Warnf("[HintService.Problem] ai unavailable, using template: %s", err)
		return p, nil
	}
	p.Text = text
	p.Source = "ai"
	return p, nil
}
