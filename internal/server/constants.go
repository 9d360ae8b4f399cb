// Package server exposes the recorder's control surface over HTTP and WebSocket.
package server

import "time"

// Server configuration constants
const (
	// Per-connection rate limiting of inbound WebSocket messages
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Deadline for pushing one message to a WebSocket client
	WriteTimeout = 2 * time.Second

	// Outbound messages queued per WebSocket client before pushes are dropped
	SendBuffer = 64

	// CPU sampling window for /api/status
	CPUSampleWindow = 100 * time.Millisecond

	// Default look-back for /api/recent
	RecentWindow = 5 * time.Minute
)

// WebSocket message types
const (
	TypeUI          = "ui"
	TypeText        = "text"
	TypePause       = "pause"
	TypeResume      = "resume"
	TypeToggle      = "toggle"
	TypeQuit        = "quit"
	TypeError       = "error"
	TypeAck         = "ack"
	TypeRateLimited = "rate_limited"
)
