// Package storage provides research result cache implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and TTL
//   - memory: In-memory map with TTL, for single instances and tests
package storage
