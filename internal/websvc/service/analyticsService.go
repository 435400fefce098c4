package service

import (
	"fmt"
	"regexp"
	"sync"
)

var eventNameRe = regexp.MustCompile(`^[a-z0-9_.:-]{1,64}$`)

const maxProps = 20

// AnalyticsService counts events in memory and forwards them to the bus.
// Counters are per process and reset on restart.
type AnalyticsService struct {
	events EventPublisher

	mu     sync.Mutex
	counts map[string]int64
}

func NewAnalyticsService(events EventPublisher) *AnalyticsService {
	return &AnalyticsService{events: events, counts: map[string]int64{}}
}

func (s *AnalyticsService) Track(name string, props map[string]interface{}, userID *int64) error {
	if !eventNameRe.MatchString(name) {
		return fmt.Errorf("%w: invalid event name", ErrInvalidInput)
	}
	if len(props) > maxProps {
		return fmt.Errorf("%w: at most %d props", ErrInvalidInput, maxProps)
	}

	s.mu.Lock()
	s.counts[name]++
	s.mu.Unlock()

	publish(s.events, name, userID, props)
	return nil
}

func (s *AnalyticsService) Snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}
