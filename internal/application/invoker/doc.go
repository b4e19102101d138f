// Package invoker wraps calls to the reasoning collaborator with bounded
// retry, exponential backoff and a per-attempt timeout.
//
// Each logical call counts as one request in the invoker's counters and is
// recorded as exactly one success or one failure when it reaches a terminal
// outcome, no matter how many attempts it took.
package invoker
