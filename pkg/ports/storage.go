package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a stored item does not exist
var ErrNotFound = errors.New("not found")

// RunStatus is the lifecycle status of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunResult is the persisted outcome of a graph traversal run
type RunResult struct {
	ID          string        `json:"id"`
	Status      RunStatus     `json:"status"`
	Sum         int64         `json:"sum"`
	Nodes       int           `json:"nodes"`
	Visited     int           `json:"visited"`
	Workers     int           `json:"workers"`
	Attempts    int           `json:"attempts"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// ResultStorage persists run results
type ResultStorage interface {
	SaveResult(ctx context.Context, result *RunResult) error
	// GetResult returns ErrNotFound (wrapped) when id is unknown.
	GetResult(ctx context.Context, id string) (*RunResult, error)
	ListResults(ctx context.Context) ([]*RunResult, error)
	DeleteResult(ctx context.Context, id string) error
}
