// Package ports defines the interfaces the application layer consumes from
// its adapters: the event bus, result storage and metrics collection.
//
// Adapters live under pkg/adapters; the in-memory implementations exist so
// the application can run (and be tested) without Redis.
package ports
