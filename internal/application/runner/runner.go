package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/graphpool/internal/application/traversal"
	"github.com/aescanero/graphpool/internal/application/workers"
	"github.com/aescanero/graphpool/pkg/adapters/metrics/noop"
	"github.com/aescanero/graphpool/pkg/domain/graph"
	"github.com/aescanero/graphpool/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrIncomplete is returned when the completion check never passes
	ErrIncomplete = errors.New("traversal incomplete")
	// ErrRunNotActive is returned when asking for the pool of a finished or unknown run
	ErrRunNotActive = errors.New("run is not active")
	// ErrShuttingDown is returned by Run and Submit once Shutdown has started
	ErrShuttingDown = errors.New("runner is shutting down")
)

// Config holds the per-run pool settings
type Config struct {
	PoolSize            int
	QueueCapacity       int
	MaxStopAttempts     int
	RunTimeout          time.Duration
	HealthCheckInterval time.Duration
	MaxNodes            int
	// PublishVisits emits a node.visited event for every visited node
	PublishVisits bool
}

// Runner drives graph traversals on worker pools: it seeds the pool, waits
// for quiescence, and stops the pool only once the traversal reports that
// every reachable node was visited, resubmitting missing nodes otherwise.
type Runner struct {
	eventBus  ports.EventBus
	storage   ports.ResultStorage
	metrics   ports.MetricsCollector
	validator *Validator
	logger    *zap.Logger
	cfg       Config

	// Track active runs
	executions sync.Map // map[string]*execution

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

// execution holds the state of one active run
type execution struct {
	id        string
	startedAt time.Time
	mu        sync.RWMutex
	pool      *workers.Pool
}

func (e *execution) setPool(p *workers.Pool) {
	e.mu.Lock()
	e.pool = p
	e.mu.Unlock()
}

func (e *execution) getPool() *workers.Pool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pool
}

// NewRunner creates a new runner
func NewRunner(
	eventBus ports.EventBus,
	storage ports.ResultStorage,
	metrics ports.MetricsCollector,
	validator *Validator,
	logger *zap.Logger,
	cfg Config,
) *Runner {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	if cfg.QueueCapacity < 1 {
		cfg.QueueCapacity = 1000
	}
	if cfg.MaxStopAttempts < 1 {
		cfg.MaxStopAttempts = 10
	}
	if metrics == nil {
		metrics = noop.NewCollector()
	}
	if validator == nil {
		validator = NewValidator(cfg.MaxNodes)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		eventBus:  eventBus,
		storage:   storage,
		metrics:   metrics,
		validator: validator,
		logger:    logger,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Run validates g and traverses it, blocking until the run finishes
func (r *Runner) Run(ctx context.Context, g *graph.Graph) (*ports.RunResult, error) {
	if err := r.validate(g); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return nil, ErrShuttingDown
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	// Shutdown cancels synchronous runs as well as background ones
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	if r.cfg.RunTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancelTimeout()
	}

	exec := r.track()
	return r.execute(ctx, exec, g)
}

// Submit validates g and starts its traversal in the background. It returns
// the run ID, under which the result is stored.
func (r *Runner) Submit(ctx context.Context, g *graph.Graph) (string, error) {
	if err := r.validate(g); err != nil {
		return "", err
	}

	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return "", ErrShuttingDown
	}
	r.wg.Add(1)
	r.mu.Unlock()

	exec := r.track()

	// Store the initial result so the run is visible before its pool starts
	if err := r.storage.SaveResult(ctx, r.newResult(exec, g)); err != nil {
		r.executions.Delete(exec.id)
		r.wg.Done()
		return "", fmt.Errorf("failed to save result: %w", err)
	}

	runCtx := r.ctx
	var cancel context.CancelFunc = func() {}
	if r.cfg.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(r.ctx, r.cfg.RunTimeout)
	}

	go func() {
		defer r.wg.Done()
		defer cancel()
		_, _ = r.execute(runCtx, exec, g)
	}()

	r.logger.Info("run submitted",
		zap.String("run_id", exec.id),
		zap.Int("nodes", g.Len()))
	return exec.id, nil
}

// GetResult retrieves the stored result of a run
func (r *Runner) GetResult(ctx context.Context, runID string) (*ports.RunResult, error) {
	result, err := r.storage.GetResult(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

// ListResults returns every stored result
func (r *Runner) ListResults(ctx context.Context) ([]*ports.RunResult, error) {
	return r.storage.ListResults(ctx)
}

// PoolStatus reports the live pool state of an active run
func (r *Runner) PoolStatus(runID string) (workers.Stats, *workers.HealthStatus, error) {
	val, ok := r.executions.Load(runID)
	if !ok {
		return workers.Stats{}, nil, fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}

	pool := val.(*execution).getPool()
	if pool == nil {
		return workers.Stats{}, nil, fmt.Errorf("%w: %s has no pool yet", ErrRunNotActive, runID)
	}
	return pool.Stats(), pool.Health().GetStatus(), nil
}

// WorkerStatus reports per-worker status of an active run, nil when the run
// is not active
func (r *Runner) WorkerStatus(runID string) map[string]workers.WorkerStatus {
	val, ok := r.executions.Load(runID)
	if !ok {
		return nil
	}
	pool := val.(*execution).getPool()
	if pool == nil {
		return nil
	}
	return pool.GetStatus()
}

// ActiveRuns returns the IDs of runs still executing
func (r *Runner) ActiveRuns() []string {
	var ids []string
	r.executions.Range(func(key, _ interface{}) bool {
		ids = append(ids, key.(string))
		return true
	})
	return ids
}

// Stopping is closed once Shutdown has begun
func (r *Runner) Stopping() <-chan struct{} {
	return r.ctx.Done()
}

// Shutdown cancels active runs and waits for them to finish
func (r *Runner) Shutdown(ctx context.Context) error {
	r.logger.Info("shutting down runner")

	r.mu.Lock()
	r.shutdown = true
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("runner shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

func (r *Runner) validate(g *graph.Graph) error {
	if err := r.validator.Validate(g); err != nil {
		r.logger.Error("graph validation failed", zap.Error(err))
		r.metrics.RecordRunCompleted("rejected", 0)
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func (r *Runner) track() *execution {
	exec := &execution{
		id:        uuid.New().String(),
		startedAt: time.Now(),
	}
	r.executions.Store(exec.id, exec)
	return exec
}

func (r *Runner) newResult(exec *execution, g *graph.Graph) *ports.RunResult {
	return &ports.RunResult{
		ID:        exec.id,
		Status:    ports.RunStatusRunning,
		Nodes:     g.Len(),
		Workers:   r.cfg.PoolSize,
		StartedAt: exec.startedAt,
	}
}

// execute runs the seed, wait, stop, resume protocol for one graph
func (r *Runner) execute(ctx context.Context, exec *execution, g *graph.Graph) (*ports.RunResult, error) {
	defer r.executions.Delete(exec.id)

	// Results are persisted even when the run itself was cancelled
	saveCtx := context.WithoutCancel(ctx)
	logger := r.logger.With(zap.String("run_id", exec.id))
	result := r.newResult(exec, g)

	r.publish(saveCtx, ports.TopicRunEvents, ports.EventTypeRunStarted, exec.id, map[string]interface{}{
		"nodes":    g.Len(),
		"workers":  r.cfg.PoolSize,
		"capacity": r.cfg.QueueCapacity,
	})

	pool, err := workers.NewPool(r.cfg.QueueCapacity, r.cfg.PoolSize,
		workers.WithLogger(logger),
		workers.WithMetrics(r.metrics),
		workers.WithHealthCheckInterval(r.cfg.HealthCheckInterval))
	if err != nil {
		return r.fail(saveCtx, logger, result, fmt.Errorf("failed to create pool: %w", err))
	}
	exec.setPool(pool)

	var hook traversal.VisitHook
	if r.cfg.PublishVisits {
		hook = func(node, value int) {
			r.publish(saveCtx, ports.TopicNodeEvents, ports.EventTypeNodeVisited, exec.id, map[string]interface{}{
				"node":  node,
				"value": value,
			})
		}
	}
	tr := traversal.New(g, pool,
		traversal.WithLogger(logger),
		traversal.WithVisitHook(hook))

	tr.Seed()

	for {
		result.Attempts++

		if err := pool.WaitUntilIdleContext(ctx); err != nil {
			pool.Stop(nil)
			result.Sum = tr.Sum()
			result.Visited = tr.Visited()
			return r.fail(saveCtx, logger, result, fmt.Errorf("waiting for quiescence: %w", err))
		}

		r.publish(saveCtx, ports.TopicRunEvents, ports.EventTypeRunIdle, exec.id, map[string]interface{}{
			"attempt": result.Attempts,
			"visited": tr.Visited(),
		})

		if pool.Stop(tr.Done) {
			break
		}

		if result.Attempts >= r.cfg.MaxStopAttempts {
			pool.Stop(nil)
			result.Sum = tr.Sum()
			result.Visited = tr.Visited()
			return r.fail(saveCtx, logger, result, fmt.Errorf("%w after %d attempts", ErrIncomplete, result.Attempts))
		}

		resubmitted := tr.Resume()
		logger.Info("work not finished, resuming traversal",
			zap.Int("attempt", result.Attempts),
			zap.Int("resubmitted", resubmitted))
	}

	completedAt := time.Now()
	result.Status = ports.RunStatusCompleted
	result.Sum = tr.Sum()
	result.Visited = tr.Visited()
	result.Duration = completedAt.Sub(result.StartedAt)
	result.CompletedAt = &completedAt

	r.save(saveCtx, logger, result)
	r.publish(saveCtx, ports.TopicRunEvents, ports.EventTypeRunCompleted, exec.id, map[string]interface{}{
		"sum":      result.Sum,
		"visited":  result.Visited,
		"attempts": result.Attempts,
	})
	r.metrics.RecordRunCompleted(string(ports.RunStatusCompleted), result.Duration)

	logger.Info("run completed",
		zap.Int64("sum", result.Sum),
		zap.Int("visited", result.Visited),
		zap.Int("attempts", result.Attempts),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// fail records a failed run
func (r *Runner) fail(ctx context.Context, logger *zap.Logger, result *ports.RunResult, err error) (*ports.RunResult, error) {
	completedAt := time.Now()
	result.Status = ports.RunStatusFailed
	result.Error = err.Error()
	result.Duration = completedAt.Sub(result.StartedAt)
	result.CompletedAt = &completedAt

	logger.Error("run failed", zap.Error(err))

	r.save(ctx, logger, result)
	r.publish(ctx, ports.TopicRunEvents, ports.EventTypeRunFailed, result.ID, map[string]interface{}{
		"error": err.Error(),
	})
	r.metrics.RecordRunCompleted(string(ports.RunStatusFailed), result.Duration)

	return result, err
}

func (r *Runner) save(ctx context.Context, logger *zap.Logger, result *ports.RunResult) {
	if err := r.storage.SaveResult(ctx, result); err != nil {
		logger.Error("failed to save result", zap.Error(err))
	}
}

// publish publishes an event to the event bus
func (r *Runner) publish(ctx context.Context, topic string, eventType ports.EventType, runID string, data map[string]interface{}) {
	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		RunID:     runID,
		Timestamp: time.Now(),
		Data:      data,
	}

	if err := r.eventBus.Publish(ctx, topic, event); err != nil {
		r.logger.Error("failed to publish event",
			zap.String("run_id", runID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
