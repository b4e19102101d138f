// Package workers implements the specialised workers the coordinator
// dispatches to, and the health monitor that watches them.
//
// Every worker satisfies the Worker contract:
//   - ValidateInput is a pure precondition check; a failing input never
//     reaches the collaborator
//   - Process turns a WorkerInput into a WorkerOutput or a typed error
//   - Metrics returns a consistent counters snapshot
//   - HealthCheck makes one bounded round-trip without touching Metrics
//
// The registry holds exactly one worker per known kind. The health monitor
// combines per-worker probes with system checks (collaborator reachability,
// resource headroom, filesystem writability, configuration completeness).
package workers
