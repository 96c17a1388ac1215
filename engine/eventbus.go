package engine

import (
	"context"
	"sync"
	"time"

	"skillpath/core"
)

type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

const (
	defaultQueueSize = 2048
	defaultWorkers   = 4
)

type subscription struct {
	id int64
	fn func(context.Context, core.Event)
}

// EventBus provides thread-safe pub/sub for domain events with sync and
// async dispatch. Async mode drops events when the queue is full rather than
// blocking the progression path.
type EventBus struct {
	mode    DispatchMode
	mu      sync.RWMutex
	subs    map[core.EventType]map[int64]subscription
	nextID  int64
	queue   chan core.Event
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewEventBus(mode DispatchMode) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &EventBus{
		mode:    mode,
		subs:    make(map[core.EventType]map[int64]subscription),
		queue:   make(chan core.Event, defaultQueueSize),
		workers: defaultWorkers,
		ctx:     ctx,
		cancel:  cancel,
	}
	if mode == DispatchAsync {
		for i := 0; i < b.workers; i++ {
			go b.drain()
		}
	}
	return b
}

func (b *EventBus) drain() {
	for {
		select {
		case ev := <-b.queue:
			b.dispatch(context.Background(), ev)
		case <-b.ctx.Done():
			return
		}
	}
}

// Close stops async workers.
func (b *EventBus) Close() {
	b.cancel()
	// give in-flight handlers a moment to finish
	time.Sleep(10 * time.Millisecond)
}

// Subscribe registers a handler for an event type. Returns an unsubscribe func.
func (b *EventBus) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[typ] == nil {
		b.subs[typ] = make(map[int64]subscription)
	}
	b.subs[typ][id] = subscription{id: id, fn: handler}
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m := b.subs[typ]; m != nil {
			delete(m, id)
		}
	}
}

// Publish sends an event to subscribers.
func (b *EventBus) Publish(ctx context.Context, ev core.Event) {
	if b.mode == DispatchAsync {
		select {
		case b.queue <- ev:
		default:
			// drop when full; progression writes must never block on fan-out
		}
		return
	}
	b.dispatch(ctx, ev)
}

func (b *EventBus) dispatch(ctx context.Context, ev core.Event) {
	b.mu.RLock()
	subs := b.subs[ev.Type]
	// copy to avoid holding the lock during callbacks
	handlers := make([]func(context.Context, core.Event), 0, len(subs))
	for _, s := range subs {
		handlers = append(handlers, s.fn)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}
