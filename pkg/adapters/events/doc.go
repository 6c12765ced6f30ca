// Package events provides event bus implementations.
//
// Implementations:
//   - redis: Redis Streams
//   - memory: In-memory, synchronous delivery
package events
