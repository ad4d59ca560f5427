package events

import (
	"context"
	"log/slog"
	"sync"
)

const (
	TopicObjectiveChanged = "objective.changed"
	TopicClassroomChanged = "classroom.changed"
	TopicAssessmentSaved  = "assessment.saved"
	TopicReportGenerated  = "reportcard.generated"
	TopicReportFinalized  = "reportcard.finalized"
)

// Event is a domain notification published after a successful write.
type Event struct {
	Topic string
	Key   string
	Data  map[string]any
}

type Handler func(ctx context.Context, evt Event)

type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Bus delivers events synchronously to subscribers in registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[evt.Topic]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, evt, h)
	}
}

func (b *Bus) dispatch(ctx context.Context, evt Event, h Handler) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("event handler panicked", "topic", evt.Topic, "key", evt.Key, "panic", rec)
		}
	}()
	h(ctx, evt)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
