// Package noop provides a MetricsCollector that discards everything.
package noop

import "time"

// Collector discards all metrics
type Collector struct{}

// NewCollector creates a no-op collector
func NewCollector() *Collector { return &Collector{} }

func (Collector) RecordTaskSubmitted() {}

func (Collector) RecordTaskRejected(string) {}

func (Collector) RecordTaskExecuted(string, time.Duration) {}

func (Collector) RecordQueueWait(time.Duration) {}

func (Collector) AddQueueDepth(int) {}

func (Collector) AddActiveWorkers(int) {}

func (Collector) RecordWorkerPoolStatus(int, int, int) {}

func (Collector) RecordRunCompleted(string, time.Duration) {}
