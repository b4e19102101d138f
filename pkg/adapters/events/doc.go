// Package events provides event bus implementations.
//
// Implementations:
//   - memory: in-process fan-out, the default
//   - redis: Redis Streams with consumer groups
//   - nats: core NATS subjects under a configurable prefix
package events
