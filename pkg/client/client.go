// Package client is a typed Go client for the file server.
//
// It wraps the generated-style fsrpc stub with per-call timeouts, retry with
// exponential backoff for transient failures of idempotent calls, and the
// chunking rules of the streaming transfers.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/bert42/fileserver/pkg/fsrpc"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Config configures a Client.
type Config struct {
	// Address is the server's host:port.
	Address string

	// ClientID identifies this client to Authenticate. Empty generates
	// "client-<uuid>".
	ClientID string

	// Timeout bounds each unary call. 0 means no per-call timeout.
	Timeout time.Duration

	// RetryAttempts is the total number of attempts for idempotent unary
	// calls. Values below 1 mean a single attempt.
	RetryAttempts int

	// RetryBaseDelay is the first retry delay; later delays double up to
	// RetryMaxDelay.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// DialOptions are appended to the default (insecure transport) options.
	DialOptions []grpc.DialOption
}

func (c *Config) applyDefaults() {
	if c.ClientID == "" {
		c.ClientID = NewClientID()
	}
	if c.RetryAttempts < 1 {
		c.RetryAttempts = 1
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 100 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 2 * time.Second
	}
}

// NewClientID returns a fresh "client-<uuid>" identifier.
func NewClientID() string {
	return "client-" + uuid.NewString()
}

// Client calls the file service.
//
// Thread safety:
// Safe for concurrent use; gRPC multiplexes calls over one connection.
type Client struct {
	cfg  Config
	conn *grpc.ClientConn
	rpc  fsrpc.FileServiceClient
}

// Dial creates a client connected (lazily) to cfg.Address.
func Dial(cfg Config) (*Client, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection to %s: %w", cfg.Address, err)
	}

	c := New(conn, cfg)
	c.conn = conn
	return c, nil
}

// New wraps an existing connection. Close does not close cc.
func New(cc grpc.ClientConnInterface, cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{cfg: cfg, rpc: fsrpc.NewFileServiceClient(cc)}
}

// Close releases the connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// ClientID returns the identifier sent by Authenticate.
func (c *Client) ClientID() string {
	return c.cfg.ClientID
}

// Authenticate announces the client and returns the exposed directories.
func (c *Client) Authenticate(ctx context.Context) (*fsrpc.AuthenticateResponse, error) {
	return retry(ctx, c, func(ctx context.Context) (*fsrpc.AuthenticateResponse, error) {
		return c.rpc.Authenticate(ctx, &fsrpc.AuthenticateRequest{ClientID: c.cfg.ClientID})
	})
}

// HealthCheck reports server health and uptime.
func (c *Client) HealthCheck(ctx context.Context) (*fsrpc.HealthCheckResponse, error) {
	return retry(ctx, c, func(ctx context.Context) (*fsrpc.HealthCheckResponse, error) {
		return c.rpc.HealthCheck(ctx, &fsrpc.HealthCheckRequest{})
	})
}

// Stat returns metadata for a virtual path.
func (c *Client) Stat(ctx context.Context, path string) (*fsrpc.FileMetadata, error) {
	return retry(ctx, c, func(ctx context.Context) (*fsrpc.FileMetadata, error) {
		return c.rpc.Stat(ctx, &fsrpc.StatRequest{Path: path})
	})
}

// List returns the entries of a directory, directories first.
func (c *Client) List(ctx context.Context, path string) ([]fsrpc.FileEntry, error) {
	resp, err := retry(ctx, c, func(ctx context.Context) (*fsrpc.ListResponse, error) {
		return c.rpc.List(ctx, &fsrpc.ListRequest{Path: path})
	})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Delete removes a file or directory tree. It is not retried: a repeated
// delete would report NotFound for a delete that succeeded.
func (c *Client) Delete(ctx context.Context, path string) (*fsrpc.DeleteResponse, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.rpc.Delete(ctx, &fsrpc.DeleteRequest{Path: path})
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// retry runs call with the per-call timeout, retrying transient failures
// with exponential backoff until RetryAttempts is exhausted or ctx is done.
func retry[T any](ctx context.Context, c *Client, call func(context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryBaseDelay
	policy.MaxInterval = c.cfg.RetryMaxDelay
	policy.MaxElapsedTime = 0

	operation := func() (T, error) {
		callCtx, cancel := c.callContext(ctx)
		defer cancel()

		resp, err := call(callCtx)
		if err != nil && !Retryable(err) {
			return resp, backoff.Permanent(err)
		}
		return resp, err
	}

	attempts := backoff.WithMaxRetries(policy, uint64(c.cfg.RetryAttempts-1))
	return backoff.RetryWithData(operation, backoff.WithContext(attempts, ctx))
}

// Retryable reports whether err is a transient transport failure.
func Retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
