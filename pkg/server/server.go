package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bert42/fileserver/internal/logger"
	"github.com/bert42/fileserver/pkg/adapter"
	"github.com/bert42/fileserver/pkg/metrics"
)

// stopTimeout bounds the Stop call issued to each adapter during shutdown.
const stopTimeout = 30 * time.Second

// FileServer manages the lifecycle of the transport adapters that expose the
// file service, plus the optional metrics HTTP server.
//
// Lifecycle:
//  1. Creation: New()
//  2. Registration: AddAdapter() for each transport, SetMetricsServer() if enabled
//  3. Startup: Serve() starts everything concurrently
//  4. Shutdown: Context cancellation (or an adapter failure) stops all
//     adapters in reverse registration order
//
// Thread safety:
// FileServer is safe for concurrent use. Serve() may only be called once.
//
// Example usage:
//
//	srv := server.New()
//	if err := srv.AddAdapter(rpc.New(rpcConfig, gw, engine, rpcMetrics)); err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	return srv.Serve(ctx)
type FileServer struct {
	mu       sync.RWMutex
	adapters []adapter.Adapter
	metrics  *metrics.Server
	served   bool
}

// ErrAlreadyServed is returned by Serve on a second call.
var ErrAlreadyServed = errors.New("server: Serve already called")

// New creates a FileServer with no adapters registered.
func New() *FileServer {
	return &FileServer{
		adapters: make([]adapter.Adapter, 0, 1),
	}
}

// AddAdapter registers a transport adapter.
//
// Returns an error if an adapter for the same protocol or port is already
// registered, or if Serve has already been called.
//
// Panics if a is nil (programmer error).
func (s *FileServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return fmt.Errorf("cannot add %s adapter after Serve() has been called", a.Protocol())
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		// port 0 means "any free port" and cannot conflict
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// SetMetricsServer attaches the metrics HTTP server started by Serve. A nil
// server leaves metrics exposure disabled.
func (s *FileServer) SetMetricsServer(m *metrics.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// Adapters returns a snapshot of the registered adapters.
func (s *FileServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]adapter.Adapter, len(s.adapters))
	copy(out, s.adapters)
	return out
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// Serve starts every registered adapter and the metrics server, then blocks
// until ctx is cancelled or an adapter fails.
//
// Returns:
//   - nil when shutdown was triggered by ctx and all adapters stopped cleanly
//   - the first adapter error otherwise (startup failure, unexpected stop,
//     or forced connection closure during shutdown)
func (s *FileServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true

	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	metricsServer := s.metrics
	s.mu.Unlock()

	logger.Info("Starting file server with %d adapter(s)", len(adapters))

	// Adapters must not outlive Serve even when one of them fails.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(runCtx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Buffered so failing adapters never block after Serve stops listening.
	errChan := make(chan adapterError, len(adapters))
	shutdownErrs := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()
			protocol := a.Protocol()

			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(runCtx)
			switch {
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
			case runCtx.Err() == nil:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			default:
				logger.Warn("%s adapter stopped with error: %v", protocol, err)
				shutdownErrs <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}

	var result error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAllAdapters(adapters)

	case failed := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			failed.protocol, failed.err)
		cancel()
		s.stopAllAdapters(adapters)
		result = fmt.Errorf("%s adapter error: %w", failed.protocol, failed.err)
	}

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()
	close(shutdownErrs)

	if result == nil {
		for e := range shutdownErrs {
			result = fmt.Errorf("%s adapter shutdown: %w", e.protocol, e.err)
			break
		}
	}

	if metricsServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Stop(stopCtx)
		stopCancel()
	}

	logger.Info("File server stopped")
	return result
}

// stopAllAdapters signals every adapter to stop, in reverse registration
// order. Errors are logged; the adapters' Serve goroutines finish cleanup.
func (s *FileServer) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		logger.Debug("Stopping %s adapter (port %d)", adp.Protocol(), adp.Port())

		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		}
	}
}
