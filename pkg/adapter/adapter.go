package adapter

import (
	"context"
)

// Adapter represents a protocol-specific server adapter managed by the file
// server orchestrator.
//
// Each adapter exposes the shared file service over one transport and
// provides a unified interface for lifecycle management.
//
// Lifecycle:
//  1. Creation: Adapter is created with transport configuration and the
//     service it exposes
//  2. Startup: Serve() opens the listener and blocks until shutdown
//  3. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. Stop() may be called
// concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	//   - Stop accepting new connections
	//   - Wait for active calls to complete (with timeout)
	//   - Clean up resources
	//
	// If Serve returns before context cancellation, the orchestrator treats
	// it as a fatal error and stops all other adapters.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - error if startup fails or shutdown is not graceful
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown of the protocol server.
	//
	// Implementations must:
	//   - Be safe to call multiple times (idempotent)
	//   - Be safe to call concurrently with Serve()
	//   - Respect the context deadline for shutdown operations
	//
	// Returns:
	//   - nil if shutdown completed successfully
	//   - error if shutdown exceeded the deadline
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging.
	Protocol() string

	// Port returns the TCP port the adapter is listening on, or the
	// configured port before Serve has bound it.
	Port() int
}
