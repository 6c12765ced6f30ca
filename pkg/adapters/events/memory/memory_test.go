package memory

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/graphpool/pkg/ports"
)

func TestPublishDeliversToTopicSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runEvents, nodeEvents []ports.Event
	if err := bus.Subscribe(ctx, ports.TopicRunEvents, func(_ context.Context, e ports.Event) error {
		runEvents = append(runEvents, e)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := bus.Subscribe(ctx, ports.TopicNodeEvents, func(_ context.Context, e ports.Event) error {
		nodeEvents = append(nodeEvents, e)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	_ = bus.Publish(ctx, ports.TopicRunEvents, ports.Event{ID: "1", Type: ports.EventTypeRunStarted})
	_ = bus.Publish(ctx, ports.TopicRunEvents, ports.Event{ID: "2", Type: ports.EventTypeRunCompleted})
	_ = bus.Publish(ctx, ports.TopicNodeEvents, ports.Event{ID: "3", Type: ports.EventTypeNodeVisited})

	if len(runEvents) != 2 || runEvents[0].ID != "1" || runEvents[1].ID != "2" {
		t.Errorf("run events = %+v", runEvents)
	}
	if len(nodeEvents) != 1 || nodeEvents[0].ID != "3" {
		t.Errorf("node events = %+v", nodeEvents)
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	bus := NewInMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())

	delivered := 0
	_ = bus.Subscribe(ctx, ports.TopicRunEvents, func(context.Context, ports.Event) error {
		delivered++
		return nil
	})

	_ = bus.Publish(context.Background(), ports.TopicRunEvents, ports.Event{ID: "1"})
	cancel()

	// unsubscribe runs in its own goroutine
	deadline := time.Now().Add(time.Second)
	for subscriberCount(bus, ports.TopicRunEvents) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not removed after cancel")
		}
		time.Sleep(time.Millisecond)
	}

	_ = bus.Publish(context.Background(), ports.TopicRunEvents, ports.Event{ID: "2"})
	if delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}
}

func TestCloseDropsSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus()

	delivered := 0
	_ = bus.Subscribe(context.Background(), ports.TopicRunEvents, func(context.Context, ports.Event) error {
		delivered++
		return nil
	})
	_ = bus.Close()

	_ = bus.Publish(context.Background(), ports.TopicRunEvents, ports.Event{ID: "1"})
	_ = bus.Subscribe(context.Background(), ports.TopicRunEvents, func(context.Context, ports.Event) error {
		delivered++
		return nil
	})
	_ = bus.Publish(context.Background(), ports.TopicRunEvents, ports.Event{ID: "2"})

	if delivered != 0 {
		t.Errorf("delivered = %d after Close, want 0", delivered)
	}
}

func subscriberCount(bus *InMemoryEventBus, topic string) int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subscribers[topic])
}
