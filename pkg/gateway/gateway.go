// Package gateway implements the file service RPC surface.
//
// Every call except Authenticate and HealthCheck parses the virtual path,
// authorizes it through the access engine and only then touches storage or
// starts a transfer. Origin authorization is not repeated here: it happens
// once per connection in the RPC adapter's listener.
package gateway

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/bert42/fileserver/internal/logger"
	"github.com/bert42/fileserver/internal/telemetry"
	"github.com/bert42/fileserver/pkg/access"
	"github.com/bert42/fileserver/pkg/fsrpc"
	"github.com/bert42/fileserver/pkg/metrics"
	"github.com/bert42/fileserver/pkg/storage"
	"github.com/bert42/fileserver/pkg/transfer"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/peer"
)

// Options configures a Gateway.
type Options struct {
	// Version is reported by HealthCheck.
	Version string

	// Metrics receives per-call measurements. Nil disables collection.
	Metrics metrics.RPCMetrics

	// Started is the instant uptime is measured from. Zero means now.
	Started time.Time
}

// Gateway serves fsrpc.FileServiceServer.
//
// Thread safety:
// Safe for concurrent use. The gateway holds only read-only state; each
// call and transfer owns its buffers.
type Gateway struct {
	fsrpc.UnimplementedFileServiceServer

	access    *access.Engine
	store     storage.Store
	transfers *transfer.Engine
	metrics   metrics.RPCMetrics
	version   string
	started   time.Time
}

// New creates a Gateway. The transfer engine must resolve paths through the
// same access engine.
func New(engine *access.Engine, store storage.Store, transfers *transfer.Engine, opts Options) *Gateway {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoopRPCMetrics()
	}
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}
	return &Gateway{
		access:    engine,
		store:     store,
		transfers: transfers,
		metrics:   opts.Metrics,
		version:   opts.Version,
		started:   opts.Started,
	}
}

// call tracks one RPC from start to status.
type call struct {
	g         *Gateway
	method    string
	path      string
	directory string
	start     time.Time
	span      trace.Span
}

// begin opens the span and in-flight accounting for method on path.
func (g *Gateway) begin(ctx context.Context, method, path string) (context.Context, *call) {
	c := &call{
		g:         g,
		method:    method,
		path:      path,
		directory: g.directoryLabel(path),
		start:     time.Now(),
	}

	ctx, c.span = telemetry.StartRPCSpan(ctx, method,
		telemetry.Path(path),
		telemetry.Directory(c.directory),
		telemetry.ClientIP(peerHost(ctx)),
	)

	g.metrics.RecordRequestStart(method)
	return ctx, c
}

// end records the outcome and converts err to a gRPC status error.
func (c *call) end(ctx context.Context, err error) error {
	st := toStatus(err)
	code := st.Code().String()

	if err != nil {
		logger.Debug("%s %q failed: %v", c.method, c.path, err)
		telemetry.RecordError(ctx, err)
	}
	c.span.SetAttributes(telemetry.Status(code))
	c.span.End()

	c.g.metrics.RecordRequestEnd(c.method)
	c.g.metrics.RecordRequest(c.method, c.directory, time.Since(c.start), code)

	if err == nil {
		return nil
	}
	return st.Err()
}

// peerHost returns the remote IP of the calling connection, or "unknown".
func peerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}

// directoryLabel returns the configured root named by path, or "" so that
// unknown client input never becomes a metric label.
func (g *Gateway) directoryLabel(path string) string {
	name, _, _ := strings.Cut(path, "/")
	if _, ok := g.access.Root(name); ok {
		return name
	}
	return ""
}

// ============================================================================
// Session calls
// ============================================================================

// Authenticate greets a client whose connection already passed origin
// authorization and returns the configured directory names.
func (g *Gateway) Authenticate(ctx context.Context, req *fsrpc.AuthenticateRequest) (*fsrpc.AuthenticateResponse, error) {
	ctx, c := g.begin(ctx, "Authenticate", "")
	c.span.SetAttributes(telemetry.ClientID(req.ClientID))

	logger.Info("Client %s connected from %s", req.ClientID, peerHost(ctx))

	resp := &fsrpc.AuthenticateResponse{
		Success:              true,
		Message:              "Connection established successfully",
		AvailableDirectories: g.access.Directories(),
	}
	return resp, c.end(ctx, nil)
}

// HealthCheck reports liveness, uptime and build version.
func (g *Gateway) HealthCheck(ctx context.Context, _ *fsrpc.HealthCheckRequest) (*fsrpc.HealthCheckResponse, error) {
	ctx, c := g.begin(ctx, "HealthCheck", "")

	resp := &fsrpc.HealthCheckResponse{
		Healthy:       true,
		UptimeSeconds: uint64(time.Since(g.started) / time.Second),
		Version:       g.version,
		Message:       "Server is healthy",
	}
	return resp, c.end(ctx, nil)
}
