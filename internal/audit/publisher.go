package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the sink a publisher appends to. Implementations: the in-memory
// store (tests, single-process deployments) and the Kafka sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher stamps and forwards audit events. By default Emit appends
// synchronously; WithAsyncBuffer switches to a buffered channel drained by a
// background goroutine, where a full buffer drops the event rather than
// block a registry mutation.
type Publisher struct {
	store Store

	inbox  chan Event
	done   chan struct{}
	closed sync.Once
}

type Option func(p *Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit records an event. Zero timestamps and IDs are filled in here so call
// sites only describe what happened.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		// Buffer full: the side channel is observational, dropping beats
		// blocking the mutation path.
	}
	return nil
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		_ = p.store.Append(context.Background(), event)
	}
}

// Close stops the async drain after flushing buffered events. Safe to call
// multiple times and in sync mode.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox == nil {
			return
		}
		close(p.inbox)
		<-p.done
	})
}
