// Package analytics collects anonymized search events. The in-memory sink is
// the default backend; persistence failures are the caller's to ignore.
package analytics

import (
	"context"
	"sync"

	"github.com/pillscan/backend/internal/domain"
)

// MemorySink is a thread-safe in-memory event sink.
type MemorySink struct {
	events []domain.SearchEvent
	mutex  sync.RWMutex
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends one search event.
func (s *MemorySink) Record(ctx context.Context, event *domain.SearchEvent) error {
	if event == nil {
		return domain.ErrValidation
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.events = append(s.events, *event)
	return nil
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []domain.SearchEvent {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]domain.SearchEvent, len(s.events))
	copy(out, s.events)
	return out
}
