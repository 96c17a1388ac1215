package engine

import (
	"context"
	"testing"
	"time"

	"skillpath/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventPointsComputed, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewPointsComputed("u", "aerial", 3))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventAchievementUnlocked, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewAchievementUnlocked("u", "aerial", "l1", "a1"))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	off := bus.Subscribe(core.EventPointsComputed, func(ctx context.Context, e core.Event) { count++ })
	off()
	bus.Publish(context.Background(), core.NewPointsComputed("u", "aerial", 1))
	if count != 0 {
		t.Fatalf("handler ran after unsubscribe: %d", count)
	}
}
