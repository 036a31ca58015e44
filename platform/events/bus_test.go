package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"marketscope_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublish_DispatchesToAllHandlersAsync(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	calls := 0

	handler := HandlerFunc(func(ctx context.Context, event Event) error {
		defer wg.Done()
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	bus.Subscribe("thing.happened", handler)
	bus.Subscribe("thing.happened", handler)
	bus.Subscribe("other.event", HandlerFunc(func(ctx context.Context, event Event) error {
		t.Error("handler for unrelated event invoked")
		return nil
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "thing.happened"})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not run within timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestPublish_RecoversHandlerPanic(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	ran := make(chan struct{})
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, event Event) error {
		close(ran)
		panic("boom")
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "thing.happened"})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not run")
	}
	// Give the recover deferral a moment; the test passes if nothing crashes.
	time.Sleep(50 * time.Millisecond)
}

func TestPublishSync_ReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	first := errors.New("first failure")
	order := make([]string, 0, 3)
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, event Event) error {
		order = append(order, "a")
		return first
	}))
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, event Event) error {
		order = append(order, "b")
		return errors.New("second failure")
	}))
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, event Event) error {
		order = append(order, "c")
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "thing.happened"})
	if err != first {
		t.Fatalf("expected first error, got %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("expected every handler to run despite errors, got %v", order)
	}
}

func TestPublishSync_NoHandlers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))
	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "nobody.cares"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
