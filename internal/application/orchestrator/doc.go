// Package orchestrator implements the coordinator that turns a task into a
// workflow.
//
// The coordinator:
//   - Asks the reasoning collaborator for a plan, falling back to a fixed
//     research, content, validation plan when planning fails
//   - Dispatches steps to the registered workers in priority order, using a
//     generic collaborator fallback for workers it does not know
//   - Synthesizes a final output from the successful steps
//   - Keeps the last workflow records in a history owned by one goroutine
//   - Publishes workflow events to the event bus
package orchestrator
