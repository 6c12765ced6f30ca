package ports

import (
	"context"
	"time"
)

// EventType identifies the kind of run event
type EventType string

const (
	EventTypeRunStarted   EventType = "run.started"
	EventTypeRunIdle      EventType = "run.idle"
	EventTypeRunCompleted EventType = "run.completed"
	EventTypeRunFailed    EventType = "run.failed"
	EventTypeNodeVisited  EventType = "node.visited"
)

// Topics used by the runner
const (
	TopicRunEvents  = "run.events"
	TopicNodeEvents = "node.events"
)

// Event is a single notification published on the event bus
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	RunID     string                 `json:"run_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler processes an event delivered by a subscription
type EventHandler func(ctx context.Context, event Event) error

// EventBus publishes and delivers run events
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	// Subscribe registers handler until ctx is cancelled.
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}
