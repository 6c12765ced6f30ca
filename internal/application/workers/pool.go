package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/graphpool/pkg/adapters/metrics/noop"
	"github.com/aescanero/graphpool/pkg/ports"
	"go.uber.org/zap"
)

var (
	// ErrInvalidConfig is returned by NewPool for a non-positive capacity or worker count
	ErrInvalidConfig = errors.New("invalid pool configuration")
	// ErrNilAction is returned when Submit is called without an action
	ErrNilAction = errors.New("task action is nil")
	// ErrPoolStopped is returned when Submit is called after a successful Stop
	ErrPoolStopped = errors.New("worker pool is stopped")
	// ErrResourceExhausted is the class of errors for submissions the pool cannot hold
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrQueueFull is returned when the queue already holds capacity tasks
	ErrQueueFull = fmt.Errorf("%w: task queue is full", ErrResourceExhausted)
)

// CompletionCheck reports whether all work is truly done. It is consulted by
// Stop, since an empty queue does not mean no more work will be produced.
type CompletionCheck func(stats Stats) bool

// Stats is a point-in-time snapshot of the pool state
type Stats struct {
	Workers       int    `json:"workers"`
	LiveWorkers   int    `json:"live_workers"`
	Capacity      int    `json:"capacity"`
	QueueLength   int    `json:"queue_length"`
	ActiveWorkers int    `json:"active_workers"`
	Submitted     uint64 `json:"submitted"`
	Executed      uint64 `json:"executed"`
	Failed        uint64 `json:"failed"`
	Rejected      uint64 `json:"rejected"`
	Released      uint64 `json:"released"`
	Stopped       bool   `json:"stopped"`
}

// Idle reports whether the snapshot shows an empty queue and no running task
func (s Stats) Idle() bool {
	return s.QueueLength == 0 && s.ActiveWorkers == 0
}

// Pool runs submitted tasks on a fixed set of worker goroutines.
//
// All mutable state below mu is guarded by it. notEmpty wakes workers when a
// task is queued or stop is requested; idle wakes WaitUntilIdle callers when
// the queue is empty and no worker is running a task.
type Pool struct {
	size           int
	capacity       int
	metrics        ports.MetricsCollector
	logger         *zap.Logger
	healthInterval time.Duration
	health         *HealthMonitor

	mu            sync.Mutex
	notEmpty      *sync.Cond
	idle          *sync.Cond
	queue         *taskQueue
	activeWorkers int
	liveWorkers   int
	stopRequested bool
	submitted     uint64
	executed      uint64
	failed        uint64
	rejected      uint64
	released      uint64

	workers []*worker
	wg      sync.WaitGroup
	stopped chan struct{}
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// Option configures a Pool
type Option func(*Pool)

// WithLogger sets the pool logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(metrics ports.MetricsCollector) Option {
	return func(p *Pool) {
		if metrics != nil {
			p.metrics = metrics
		}
	}
}

// WithHealthCheckInterval enables the health monitor at the given interval
func WithHealthCheckInterval(interval time.Duration) Option {
	return func(p *Pool) {
		p.healthInterval = interval
	}
}

// NewPool creates a pool holding at most capacity pending tasks and starts
// workerCount workers. No partial pool is returned on error.
func NewPool(capacity, workerCount int, opts ...Option) (*Pool, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidConfig, capacity)
	}
	if workerCount < 1 {
		return nil, fmt.Errorf("%w: worker count must be at least 1, got %d", ErrInvalidConfig, workerCount)
	}

	p := &Pool{
		size:     workerCount,
		capacity: capacity,
		metrics:  noop.NewCollector(),
		logger:   zap.NewNop(),
		queue:    newTaskQueue(),
		workers:  make([]*worker, workerCount),
		stopped:  make(chan struct{}),
	}
	p.notEmpty = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)

	for _, opt := range opts {
		opt(p)
	}
	if p.healthInterval > 0 {
		p.health = NewHealthMonitor(p, p.healthInterval, p.logger)
	}

	p.liveWorkers = workerCount
	for i := 0; i < workerCount; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run()
	}

	if p.health != nil {
		p.health.Start()
	}

	p.logger.Info("worker pool started",
		zap.Int("workers", workerCount),
		zap.Int("capacity", capacity))
	return p, nil
}

// Submit queues action(arg) for execution by some worker. It is safe to call
// from any goroutine, including from inside a running action.
//
// On success the pool owns arg. On error the caller keeps it.
func (p *Pool) Submit(action Action, arg any) error {
	if action == nil {
		return ErrNilAction
	}

	p.mu.Lock()
	if p.stopRequested {
		p.rejected++
		p.mu.Unlock()
		p.metrics.RecordTaskRejected("stopped")
		return ErrPoolStopped
	}
	if p.queue.len() >= p.capacity {
		p.rejected++
		p.mu.Unlock()
		p.metrics.RecordTaskRejected("queue_full")
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, p.capacity)
	}

	p.queue.enqueue(Task{action: action, arg: arg, enqueuedAt: time.Now()})
	p.submitted++
	p.notEmpty.Signal()
	p.mu.Unlock()

	p.metrics.RecordTaskSubmitted()
	p.metrics.AddQueueDepth(1)
	return nil
}

// WaitUntilIdle blocks until the queue is empty and no worker is running a
// task. Both conditions are observed together under the pool lock.
func (p *Pool) WaitUntilIdle() {
	_ = p.WaitUntilIdleContext(context.Background())
}

// WaitUntilIdleContext is WaitUntilIdle that gives up when ctx is done
func (p *Pool) WaitUntilIdleContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.idle.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	for p.queue.len() > 0 || p.activeWorkers > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.idle.Wait()
	}
	return nil
}

// Stop tears the pool down if done reports that all work is finished, and
// returns whether it did. When done returns false the pool is left fully
// operational so the caller can submit more work and retry. A nil done stops
// unconditionally.
//
// Teardown drops and releases any task still queued, waits for in-flight
// tasks to return and joins every worker. Calling Stop on a stopped pool
// returns true once teardown has finished.
//
// Stop must not be called from inside a task action: it waits for every
// worker, including the caller's.
func (p *Pool) Stop(done CompletionCheck) bool {
	p.mu.Lock()
	already := p.stopRequested
	p.mu.Unlock()
	if already {
		<-p.stopped
		return true
	}

	if done != nil && !done(p.Stats()) {
		p.logger.Debug("stop deferred: work not finished")
		return false
	}

	p.mu.Lock()
	if p.stopRequested {
		p.mu.Unlock()
		<-p.stopped
		return true
	}
	p.stopRequested = true
	leftover := p.queue.drain()
	p.notEmpty.Broadcast()
	p.idle.Broadcast()
	p.mu.Unlock()

	p.logger.Info("shutting down worker pool", zap.Int("dropped_tasks", len(leftover)))

	for i := range leftover {
		p.release(&leftover[i])
	}
	p.metrics.AddQueueDepth(-len(leftover))

	p.mu.Lock()
	p.released += uint64(len(leftover))
	p.idle.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()

	if p.health != nil {
		p.health.Stop()
	}
	p.metrics.RecordWorkerPoolStatus(0, 0, p.size)

	close(p.stopped)
	p.logger.Info("worker pool shut down complete")
	return true
}

// Done is closed once Stop has finished tearing the pool down
func (p *Pool) Done() <-chan struct{} {
	return p.stopped
}

// Stats returns a snapshot of the pool state
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Workers:       p.size,
		LiveWorkers:   p.liveWorkers,
		Capacity:      p.capacity,
		QueueLength:   p.queue.len(),
		ActiveWorkers: p.activeWorkers,
		Submitted:     p.submitted,
		Executed:      p.executed,
		Failed:        p.failed,
		Rejected:      p.rejected,
		Released:      p.released,
		Stopped:       p.stopRequested,
	}
}

// Size returns the number of workers the pool was created with
func (p *Pool) Size() int {
	return p.size
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus, len(p.workers))
	for _, w := range p.workers {
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// next blocks until a task is queued or stop is requested. A returned task
// is already counted in activeWorkers: the increment and the dequeue share
// one critical section, so no observer can see the task neither queued nor
// active.
func (p *Pool) next() (Task, bool) {
	p.mu.Lock()
	for p.queue.len() == 0 && !p.stopRequested {
		p.notEmpty.Wait()
	}
	if p.stopRequested {
		p.liveWorkers--
		p.mu.Unlock()
		return Task{}, false
	}

	p.activeWorkers++
	t, _ := p.queue.dequeue()
	p.mu.Unlock()

	p.metrics.AddQueueDepth(-1)
	p.metrics.AddActiveWorkers(1)
	return t, true
}

// finish retires a task taken by next. It runs after the action returned and
// its argument was released.
func (p *Pool) finish(failed bool) {
	p.mu.Lock()
	p.activeWorkers--
	p.released++
	if failed {
		p.failed++
	} else {
		p.executed++
	}
	if p.activeWorkers == 0 && p.queue.len() == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()

	p.metrics.AddActiveWorkers(-1)
}

// execute runs the task action outside the pool lock. A panic is recovered
// and reported as a failed task.
func (p *Pool) execute(w *worker, t Task) (failed bool) {
	start := time.Now()
	p.metrics.RecordQueueWait(start.Sub(t.enqueuedAt))

	defer func() {
		if r := recover(); r != nil {
			failed = true
			p.logger.Error("task panicked",
				zap.String("worker_id", w.id),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}

		status := "completed"
		if failed {
			status = "failed"
		}
		p.metrics.RecordTaskExecuted(status, time.Since(start))
	}()

	t.action(t.arg)
	return false
}

// release releases the task argument. A panicking Release is recovered and
// reported as false so the caller still retires the task.
func (p *Pool) release(t *Task) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			t.action = nil
			t.arg = nil
			p.logger.Error("task release panicked",
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	t.release()
	return true
}

// run is the main worker loop
func (w *worker) run() {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for {
		t, ok := w.pool.next()
		if !ok {
			break
		}

		w.setStatus(WorkerStatusBusy)
		failed := w.pool.execute(w, t)
		if !w.pool.release(&t) {
			failed = true
		}
		w.setStatus(WorkerStatusIdle)

		w.pool.finish(failed)
	}

	w.setStatus(WorkerStatusStopped)
	w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
}

func (w *worker) setStatus(status WorkerStatus) {
	w.mu.Lock()
	w.status = status
	if status == WorkerStatusBusy {
		w.lastJob = time.Now()
	}
	w.mu.Unlock()
}
