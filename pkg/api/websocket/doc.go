// Package websocket provides real-time event streaming via WebSocket.
//
// Clients connect to /api/v1/runs/:id/ws to receive the events of one run.
// The connection is closed after run.completed or run.failed.
package websocket
