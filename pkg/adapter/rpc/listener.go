package rpc

import (
	"net"
	"sync"

	"github.com/bert42/fileserver/internal/logger"
)

// OriginAuthorizer decides whether a remote address may connect.
//
// *access.Engine satisfies this interface.
type OriginAuthorizer interface {
	AuthorizeOrigin(remote net.Addr) error
}

// originListener authorizes every accepted connection before handing it to
// the gRPC server. Rejected connections are closed immediately, so no call
// from a disallowed origin is ever decoded.
type originListener struct {
	net.Listener
	adapter *RPCAdapter
}

func (l *originListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		if err := l.adapter.origins.AuthorizeOrigin(conn.RemoteAddr()); err != nil {
			logger.Warn("Rejected connection from %s: %v", conn.RemoteAddr(), err)
			l.adapter.metrics.RecordConnectionRejected()
			_ = conn.Close()
			continue
		}

		return l.adapter.track(conn), nil
	}
}

// trackedConn unregisters itself from the adapter on first Close.
type trackedConn struct {
	net.Conn
	adapter   *RPCAdapter
	key       string
	closeOnce sync.Once
}

func (c *trackedConn) Close() error {
	err := c.Conn.Close()
	c.closeOnce.Do(func() { c.adapter.untrack(c) })
	return err
}

// track registers conn for shutdown accounting.
func (s *RPCAdapter) track(conn net.Conn) *trackedConn {
	tc := &trackedConn{Conn: conn, adapter: s, key: conn.RemoteAddr().String()}

	s.activeConnections.Store(tc.key, tc)
	current := s.connCount.Add(1)

	s.metrics.RecordConnectionAccepted()
	s.metrics.SetActiveConnections(current)
	logger.Debug("Connection accepted from %s (active: %d)", tc.key, current)
	return tc
}

func (s *RPCAdapter) untrack(tc *trackedConn) {
	s.activeConnections.Delete(tc.key)
	current := s.connCount.Add(-1)

	s.metrics.RecordConnectionClosed()
	s.metrics.SetActiveConnections(current)
	logger.Debug("Connection closed from %s (active: %d)", tc.key, current)
}
