// Package storage provides run result storage implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and TTL
//   - memory: In-memory, used by the CLI and tests
package storage
