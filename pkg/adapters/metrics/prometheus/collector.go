package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "graphpool"

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	tasksSubmitted    prometheus.Counter
	tasksRejected     *prometheus.CounterVec
	tasksExecuted     *prometheus.CounterVec
	taskDuration      prometheus.Histogram
	queueWaitTime     prometheus.Histogram
	queueDepth        prometheus.Gauge
	activeWorkers     prometheus.Gauge
	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
	runsCompleted     *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector registered with
// reg. A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		tasksSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks accepted by the pool",
			},
		),
		tasksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_rejected_total",
				Help:      "Total number of tasks rejected by the pool",
			},
			[]string{"reason"},
		),
		tasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_executed_total",
				Help:      "Total number of tasks executed",
			},
			[]string{"status"},
		),
		taskDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "Task execution duration in seconds",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10},
			},
		),
		queueWaitTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "queue_wait_time_seconds",
				Help:      "Time tasks spent waiting in the queue",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10},
			},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Number of queued tasks, summed across pools",
			},
		),
		activeWorkers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_workers",
				Help:      "Number of workers running a task, summed across pools",
			},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_pool_idle",
				Help:      "Number of idle workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_pool_busy",
				Help:      "Number of busy workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_pool_stopped",
				Help:      "Number of stopped workers",
			},
		),
		runsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of finished traversal runs",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Traversal run duration in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 1, 5, 10, 30, 60, 300},
			},
			[]string{"status"},
		),
	}
}

// RecordTaskSubmitted counts a task accepted by the pool
func (c *Collector) RecordTaskSubmitted() {
	c.tasksSubmitted.Inc()
}

// RecordTaskRejected counts a task the pool refused
func (c *Collector) RecordTaskRejected(reason string) {
	c.tasksRejected.WithLabelValues(reason).Inc()
}

// RecordTaskExecuted records a task execution
func (c *Collector) RecordTaskExecuted(status string, duration time.Duration) {
	c.tasksExecuted.WithLabelValues(status).Inc()
	c.taskDuration.Observe(duration.Seconds())
}

// RecordQueueWait records how long a task waited in the queue
func (c *Collector) RecordQueueWait(duration time.Duration) {
	c.queueWaitTime.Observe(duration.Seconds())
}

// AddQueueDepth moves the queue depth gauge by delta
func (c *Collector) AddQueueDepth(delta int) {
	c.queueDepth.Add(float64(delta))
}

// AddActiveWorkers moves the active workers gauge by delta
func (c *Collector) AddActiveWorkers(delta int) {
	c.activeWorkers.Add(float64(delta))
}

// RecordWorkerPoolStatus records the status of the most recent pool health
// check. With several pools the last one to report wins.
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}

// RecordRunCompleted records a finished run
func (c *Collector) RecordRunCompleted(status string, duration time.Duration) {
	c.runsCompleted.WithLabelValues(status).Inc()
	c.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}
