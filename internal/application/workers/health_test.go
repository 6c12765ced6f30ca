package workers

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// recordingCollector keeps the last pool status it was given
type recordingCollector struct {
	mu                  sync.Mutex
	idle, busy, stopped int
	statusCalls         int
	queueDepth          int
	activeWorkers       int
	submitted           int
	rejected            map[string]int
	executed            map[string]int
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		rejected: make(map[string]int),
		executed: make(map[string]int),
	}
}

func (c *recordingCollector) RecordTaskSubmitted() {
	c.mu.Lock()
	c.submitted++
	c.mu.Unlock()
}

func (c *recordingCollector) RecordTaskRejected(reason string) {
	c.mu.Lock()
	c.rejected[reason]++
	c.mu.Unlock()
}

func (c *recordingCollector) RecordTaskExecuted(status string, _ time.Duration) {
	c.mu.Lock()
	c.executed[status]++
	c.mu.Unlock()
}

func (c *recordingCollector) RecordQueueWait(time.Duration) {}

func (c *recordingCollector) AddQueueDepth(delta int) {
	c.mu.Lock()
	c.queueDepth += delta
	c.mu.Unlock()
}

func (c *recordingCollector) AddActiveWorkers(delta int) {
	c.mu.Lock()
	c.activeWorkers += delta
	c.mu.Unlock()
}

func (c *recordingCollector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.mu.Lock()
	c.idle, c.busy, c.stopped = idle, busy, stopped
	c.statusCalls++
	c.mu.Unlock()
}

func (c *recordingCollector) RecordRunCompleted(string, time.Duration) {}

func TestHealthStatusOfIdlePool(t *testing.T) {
	pool := newTestPool(t, 10, 3)
	defer pool.Stop(nil)

	status := pool.Health().GetStatus()
	if status.TotalWorkers != 3 || status.IdleWorkers != 3 {
		t.Fatalf("expected 3 idle workers, got %+v", status)
	}
	if !status.Healthy {
		t.Fatal("expected idle pool to be healthy")
	}
}

func TestHealthStatusSaturatedQueue(t *testing.T) {
	pool := newTestPool(t, 1, 1)

	blocker := make(chan struct{})
	_ = pool.Submit(func(any) { <-blocker }, nil)
	waitFor(t, func() bool { return pool.Health().GetStatus().BusyWorkers == 1 })
	_ = pool.Submit(func(any) {}, nil)

	status := pool.Health().GetStatus()
	if !status.Saturated() || status.Healthy {
		t.Errorf("expected saturated, unhealthy pool, got %+v", status)
	}

	close(blocker)
	pool.WaitUntilIdle()
	pool.Stop(nil)
}

func TestHealthMonitorRecordsMetrics(t *testing.T) {
	metrics := newRecordingCollector()
	pool, err := NewPool(10, 2,
		WithLogger(zaptest.NewLogger(t)),
		WithMetrics(metrics),
		WithHealthCheckInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	waitFor(t, func() bool {
		metrics.mu.Lock()
		defer metrics.mu.Unlock()
		return metrics.statusCalls > 0
	})

	metrics.mu.Lock()
	if metrics.idle != 2 || metrics.busy != 0 {
		t.Errorf("expected 2 idle workers recorded, got idle=%d busy=%d", metrics.idle, metrics.busy)
	}
	metrics.mu.Unlock()

	_ = pool.Submit(func(any) {}, nil)
	_ = pool.Submit(func(any) { panic("boom") }, nil)
	pool.WaitUntilIdle()
	pool.Stop(nil)
	_ = pool.Submit(func(any) {}, nil)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.submitted != 2 {
		t.Errorf("expected 2 submissions, got %d", metrics.submitted)
	}
	if metrics.executed["completed"] != 1 || metrics.executed["failed"] != 1 {
		t.Errorf("unexpected execution counts: %v", metrics.executed)
	}
	if metrics.rejected["stopped"] != 1 {
		t.Errorf("expected one rejection after stop, got %v", metrics.rejected)
	}
	if metrics.stopped != 2 {
		t.Errorf("expected stop to record 2 stopped workers, got %d", metrics.stopped)
	}
}

func TestSharedCollectorGaugesSumAcrossPools(t *testing.T) {
	metrics := newRecordingCollector()
	newPool := func() *Pool {
		pool, err := NewPool(10, 1, WithLogger(zaptest.NewLogger(t)), WithMetrics(metrics))
		if err != nil {
			t.Fatalf("NewPool: %v", err)
		}
		return pool
	}
	first, second := newPool(), newPool()

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	block := func(any) {
		started <- struct{}{}
		<-release
	}
	for _, pool := range []*Pool{first, second} {
		if err := pool.Submit(block, nil); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if err := pool.Submit(func(any) {}, nil); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	<-started
	<-started

	waitFor(t, func() bool {
		metrics.mu.Lock()
		defer metrics.mu.Unlock()
		return metrics.activeWorkers == 2 && metrics.queueDepth == 2
	})

	// Stopping one pool drops its queued task but must not reset what the
	// other pool still reports
	stopped := make(chan bool)
	go func() { stopped <- first.Stop(nil) }()
	waitFor(t, func() bool {
		metrics.mu.Lock()
		defer metrics.mu.Unlock()
		return metrics.activeWorkers == 2 && metrics.queueDepth == 1
	})
	close(release)
	if !<-stopped {
		t.Fatal("expected first pool to stop")
	}
	second.WaitUntilIdle()
	second.Stop(nil)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.queueDepth != 0 || metrics.activeWorkers != 0 {
		t.Errorf("expected gauges back at 0, got depth=%d active=%d", metrics.queueDepth, metrics.activeWorkers)
	}
}

func TestHealthMonitorStartStopIdempotent(t *testing.T) {
	pool := newTestPool(t, 10, 1)
	defer pool.Stop(nil)

	h := NewHealthMonitor(pool, time.Millisecond, nil)
	h.Start()
	h.Start()
	h.Stop()
	h.Stop()

	h.Start()
	h.Stop()
}
