package ports

import "time"

// MetricsCollector records pool and run metrics
type MetricsCollector interface {
	RecordTaskSubmitted()
	RecordTaskRejected(reason string)
	RecordTaskExecuted(status string, duration time.Duration)
	RecordQueueWait(duration time.Duration)
	// AddQueueDepth and AddActiveWorkers take deltas so that several pools
	// sharing one collector report their sum
	AddQueueDepth(delta int)
	AddActiveWorkers(delta int)
	// RecordWorkerPoolStatus is absolute: the last pool to report wins
	RecordWorkerPoolStatus(idle, busy, stopped int)
	RecordRunCompleted(status string, duration time.Duration)
}
