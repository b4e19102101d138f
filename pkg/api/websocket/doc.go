// Package websocket provides real-time event streaming via WebSocket.
//
// Clients connect to /api/v1/events/ws (optionally with ?task_id=) to
// receive workflow.started, step.completed, workflow.completed and
// workflow.cancelled events as JSON text frames.
package websocket
