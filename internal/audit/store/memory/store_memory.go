package memory

import (
	"context"
	"sync"

	"onsd/internal/audit"
	"onsd/pkg/domain"
)

// InMemoryStore keeps audit events per caller. Used by tests and by
// deployments without a Kafka sink.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.CallerID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.CallerID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.Caller] = append(s.events[event.Caller], event)
	return nil
}

func (s *InMemoryStore) ListByCaller(_ context.Context, caller domain.CallerID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[caller]...), nil
}

// ListAll returns all events across callers, in per-caller append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, events := range s.events {
		all = append(all, events...)
	}
	return all, nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.CallerID][]audit.Event)
}
