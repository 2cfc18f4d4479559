package rpc

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bert42/fileserver/internal/logger"
	"github.com/bert42/fileserver/internal/ratelimiter"
	"github.com/bert42/fileserver/pkg/fsrpc"
	"github.com/bert42/fileserver/pkg/metrics"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
)

// RPCAdapter serves the file service over gRPC.
//
// Architecture:
// RPCAdapter owns the TCP listener. Accepted connections pass the origin
// allowlist before the gRPC server sees them, and are tracked so shutdown can
// report and, if needed, force-close them. gRPC multiplexes calls on each
// connection; every call runs on its own goroutine.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. gRPC GracefulStop: listener closed, no new calls accepted
//  3. Wait for in-flight calls to finish (up to ShutdownTimeout)
//  4. Force-close any remaining connections after timeout
//
// Thread safety:
// All methods are safe for concurrent use.
type RPCAdapter struct {
	config  Config
	service fsrpc.FileServiceServer
	origins OriginAuthorizer
	metrics metrics.RPCMetrics
	limiter *ratelimiter.RateLimiter

	grpcServer *grpc.Server

	// listener is set once Serve has bound the port; ready is closed then.
	// readyMu orders closing ready against a Stop that arrives first.
	readyMu  sync.Mutex
	listener net.Listener
	ready    chan struct{}

	shutdownOnce sync.Once
	shutdown     chan struct{}

	// stopped is closed when GracefulStop (or Stop) has returned.
	stopped chan struct{}

	connCount         atomic.Int32
	activeConnections sync.Map
}

// Config holds transport parameters for the RPC adapter.
//
// Default values (applied by New if zero):
//   - BindAddress: 0.0.0.0
//   - Port: 50051
//   - MaxMessageSize: 4 MiB
//   - ShutdownTimeout: 30s
//   - MetricsLogInterval: 5m
type Config struct {
	// BindAddress is the interface to listen on.
	BindAddress string `mapstructure:"bind_address"`

	// Port is the TCP port to listen on. Use -1 to let the OS pick one.
	Port int `mapstructure:"port" validate:"min=-1,max=65535"`

	// MaxConnections limits concurrently open connections. Excess
	// connections wait in the accept queue. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// MaxMessageSize bounds a single gRPC message in either direction.
	// It must exceed one transfer chunk plus framing.
	MaxMessageSize int `mapstructure:"max_message_size" validate:"min=0"`

	// ShutdownTimeout is the maximum duration to wait for in-flight calls
	// during graceful shutdown before connections are force-closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// MetricsLogInterval is the interval at which connection counts are
	// logged. Negative disables periodic logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval"`

	// RateLimit throttles calls across all connections.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures the shared token bucket. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond uint `mapstructure:"requests_per_second"`
	Burst             uint `mapstructure:"burst"`
}

func (c *Config) applyDefaults() {
	if c.BindAddress == "" {
		c.BindAddress = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 50051
	}
	if c.Port < 0 {
		c.Port = 0
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 4 << 20
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("invalid MaxMessageSize %d: must be >= 0", c.MaxMessageSize)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be >= 0", c.ShutdownTimeout)
	}
	return nil
}

// New creates an RPCAdapter in a stopped state. Call Serve to start it.
//
// Parameters:
//   - config: Transport configuration; zero values take defaults
//   - service: The file service implementation to expose
//   - origins: Connection-time origin check
//   - rpcMetrics: Optional metrics collector (nil for no metrics)
//
// Panics if config validation fails (indicates programmer error).
func New(config Config, service fsrpc.FileServiceServer, origins OriginAuthorizer, rpcMetrics metrics.RPCMetrics) *RPCAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid RPC config: %v", err))
	}

	if rpcMetrics == nil {
		rpcMetrics = metrics.NewNoopRPCMetrics()
	}

	return &RPCAdapter{
		config:   config,
		service:  service,
		origins:  origins,
		metrics:  rpcMetrics,
		limiter:  ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst),
		ready:    make(chan struct{}),
		shutdown: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (s *RPCAdapter) serverOptions() []grpc.ServerOption {
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(s.config.MaxMessageSize),
		grpc.MaxSendMsgSize(s.config.MaxMessageSize),
		grpc.ConnectionTimeout(10 * time.Second),
	}
	if !s.limiter.Unlimited() {
		opts = append(opts,
			grpc.ChainUnaryInterceptor(s.limiter.UnaryServerInterceptor()),
			grpc.ChainStreamInterceptor(s.limiter.StreamServerInterceptor()),
		)
		logger.Debug("RPC rate limit: %d req/s (burst %d)",
			s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst)
	}
	return opts
}

// Serve binds the listener and serves calls until ctx is cancelled or Stop
// is called.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails or connections had to be force-closed
func (s *RPCAdapter) Serve(ctx context.Context) error {
	select {
	case <-s.shutdown:
		return nil
	default:
	}

	addr := net.JoinHostPort(s.config.BindAddress, strconv.Itoa(s.config.Port))
	raw, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create RPC listener on %s: %w", addr, err)
	}

	var listener net.Listener = raw
	if s.config.MaxConnections > 0 {
		listener = netutil.LimitListener(raw, s.config.MaxConnections)
		logger.Debug("RPC connection limit: %d", s.config.MaxConnections)
	}
	listener = &originListener{Listener: listener, adapter: s}

	s.grpcServer = grpc.NewServer(s.serverOptions()...)
	fsrpc.RegisterFileServiceServer(s.grpcServer, s.service)

	s.readyMu.Lock()
	select {
	case <-s.shutdown:
		s.readyMu.Unlock()
		_ = raw.Close()
		logger.Debug("RPC server stopped before listening on %s", raw.Addr())
		return nil
	default:
	}
	s.listener = listener
	close(s.ready)
	s.readyMu.Unlock()
	logger.Info("RPC server listening on %s", raw.Addr())

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("RPC shutdown signal received: %v", ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(ctx)
	}

	// Serve returns once GracefulStop has closed the listener.
	serveErr := s.grpcServer.Serve(listener)

	select {
	case <-s.shutdown:
		return s.gracefulShutdown()
	default:
		s.initiateShutdown()
		return fmt.Errorf("RPC server stopped unexpectedly: %w", serveErr)
	}
}

// initiateShutdown starts a graceful stop exactly once.
func (s *RPCAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("RPC shutdown initiated")
		close(s.shutdown)

		go func() {
			<-s.ready
			s.grpcServer.GracefulStop()
			close(s.stopped)
		}()
	})
}

// gracefulShutdown waits for in-flight calls to finish or the timeout to
// expire, then force-closes what is left.
func (s *RPCAdapter) gracefulShutdown() error {
	logger.Info("RPC graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		s.connCount.Load(), s.config.ShutdownTimeout)

	select {
	case <-s.stopped:
		logger.Info("RPC graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("RPC shutdown timeout exceeded: %d connection(s) still active after %v - forcing closure",
			remaining, s.config.ShutdownTimeout)

		s.forceCloseConnections()
		<-s.stopped
		return fmt.Errorf("RPC shutdown timeout: %d connections force-closed", remaining)
	}
}

// forceCloseConnections cancels every in-flight call and closes every
// tracked socket, including ones still in the HTTP/2 handshake.
func (s *RPCAdapter) forceCloseConnections() {
	closed := 0
	s.activeConnections.Range(func(key, value any) bool {
		conn := value.(*trackedConn)
		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection to %s: %v", key, err)
		} else {
			closed++
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})

	s.grpcServer.Stop()
	logger.Info("Force-closed %d connection(s)", closed)
}

// Stop initiates graceful shutdown and waits until it completes or ctx is
// done. Safe to call multiple times and concurrently with Serve.
func (s *RPCAdapter) Stop(ctx context.Context) error {
	s.readyMu.Lock()
	select {
	case <-s.ready:
		s.readyMu.Unlock()
	default:
		// never served; nothing to drain
		s.shutdownOnce.Do(func() {
			close(s.shutdown)
			close(s.stopped)
		})
		s.readyMu.Unlock()
		return nil
	}

	s.initiateShutdown()

	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("RPC shutdown context cancelled: %d connection(s) still active: %v",
			remaining, ctx.Err())
		return ctx.Err()
	}
}

func (s *RPCAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			logger.Info("RPC metrics: active_connections=%d", s.connCount.Load())
		}
	}
}

// GetActiveConnections returns the number of open, authorized connections.
func (s *RPCAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// Ready is closed once the listener is bound.
func (s *RPCAdapter) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address, or nil before Serve has bound it.
func (s *RPCAdapter) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.listener.Addr()
	default:
		return nil
	}
}

// Port returns the bound TCP port once listening, else the configured one.
func (s *RPCAdapter) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return s.config.Port
}

// Protocol returns "gRPC".
func (s *RPCAdapter) Protocol() string {
	return "gRPC"
}
