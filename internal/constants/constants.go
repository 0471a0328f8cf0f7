// Package constants provides shared constants used by the HTTP server and CLI.
package constants

import "time"

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for job event listeners
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize bounds a multipart upload; the Face API rejects images over 6MB
	MaxUploadSize = 8 << 20
)

// HTTP server timeouts
const (
	ServerReadTimeout  = 30 * time.Second
	ServerWriteTimeout = 15 * time.Minute // SSE streams of a full rebuild
	ServerIdleTimeout  = 60 * time.Second

	// RequestTimeout bounds synchronous whitelist workflows
	RequestTimeout = 12 * time.Minute

	ShutdownTimeout = 10 * time.Second
)

// Job retention
const (
	// MaxFinishedJobs is how many finished build jobs are kept for status queries
	MaxFinishedJobs = 20
)
