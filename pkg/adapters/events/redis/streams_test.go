package redis

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/graphpool/pkg/ports"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

func newTestBus(t *testing.T) (*StreamsEventBus, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	bus := NewStreamsEventBus(client, 1000, zaptest.NewLogger(t))
	bus.block = 50 * time.Millisecond
	t.Cleanup(func() {
		bus.Close()
		client.Close()
	})
	return bus, mr
}

func TestPublishAppendsToStream(t *testing.T) {
	bus, mr := newTestBus(t)

	event := ports.Event{ID: "e1", Type: ports.EventTypeRunStarted, RunID: "run-1", Timestamp: time.Now()}
	if err := bus.Publish(context.Background(), ports.TopicRunEvents, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	entries, err := mr.Stream("graphpool:events:run.events")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("stream length = %d, want 1", len(entries))
	}
}

func TestSubscribeReceivesLaterEvents(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	// published before the subscription, not delivered
	_ = bus.Publish(ctx, ports.TopicRunEvents, ports.Event{ID: "old", RunID: "run-1"})

	received := make(chan ports.Event, 10)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := bus.Subscribe(subCtx, ports.TopicRunEvents, func(_ context.Context, e ports.Event) error {
		received <- e
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for _, id := range []string{"e1", "e2"} {
		ev := ports.Event{ID: id, Type: ports.EventTypeNodeVisited, RunID: "run-1", Data: map[string]interface{}{"node": 3}}
		if err := bus.Publish(ctx, ports.TopicRunEvents, ev); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	for _, want := range []string{"e1", "e2"} {
		select {
		case e := <-received:
			if e.ID != want {
				t.Fatalf("event = %s, want %s", e.ID, want)
			}
			if e.RunID != "run-1" || e.Type != ports.EventTypeNodeVisited {
				t.Errorf("event = %+v", e)
			}
			// JSON numbers decode as float64
			if node, _ := e.Data["node"].(float64); node != 3 {
				t.Errorf("data = %v", e.Data)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestCloseStopsSubscribers(t *testing.T) {
	bus, _ := newTestBus(t)

	if err := bus.Subscribe(context.Background(), ports.TopicNodeEvents, func(context.Context, ports.Event) error {
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		bus.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}
