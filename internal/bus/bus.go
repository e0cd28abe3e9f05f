package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Bus dispatches events synchronously to subscribers keyed by the event's Go type.
// Publishing on a nil Bus is a no-op.
type Bus struct {
	mu   sync.RWMutex
	ctx  context.Context
	subs map[string][]func(ctx context.Context, event any)
}

func New() *Bus {
	return &Bus{
		ctx:  context.Background(),
		subs: make(map[string][]func(ctx context.Context, event any)),
	}
}

func (b *Bus) SetContext(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()
}

func topic[T any]() string {
	return fmt.Sprintf("%T", *new(T))
}

func Subscribe[T any](b *Bus, name string, fn func(ctx context.Context, event T) error) {
	t := topic[T]()
	b.mu.Lock()
	b.subs[t] = append(b.subs[t], func(ctx context.Context, event any) {
		if err := fn(ctx, event.(T)); err != nil {
			slog.Error("Failed to handle event", "package", "bus", "name", name, "topic", t, "error", err)
		}
	})
	b.mu.Unlock()
}

func Publish[T any](b *Bus, event T) {
	if b == nil {
		return
	}

	b.mu.RLock()
	ctx := b.ctx
	fns := b.subs[topic[T]()]
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, event)
	}
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		subs: make(map[*chan T]struct{}),
	}
}

// Hub fans events out to channel subscribers. Slow subscribers lose events instead
// of stalling the publisher.
type Hub[T any] struct {
	mu      sync.Mutex
	subs    map[*chan T]struct{}
	dropped atomic.Uint64
}

func (h *Hub[T]) Broadcast(ctx context.Context, event T) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case *sub <- event:
		default:
			h.dropped.Add(1)
		}
	}

	return nil
}

// Dropped returns how many events were not delivered to a full subscriber.
func (h *Hub[T]) Dropped() uint64 {
	return h.dropped.Load()
}

// Register subscribes the hub to every T published on b.
func (h *Hub[T]) Register(b *Bus) *Hub[T] {
	Subscribe(b, "bus.Hub", h.Broadcast)
	return h
}

func (h *Hub[T]) Subscribe(size int) (<-chan T, func()) {
	h.mu.Lock()
	c := make(chan T, size)

	key := &c
	h.subs[key] = struct{}{}
	h.mu.Unlock()

	return c, func() {
		h.mu.Lock()
		delete(h.subs, key)
		h.mu.Unlock()
	}
}
