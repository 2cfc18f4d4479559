package metrics

import "time"

// Transfer directions for RecordBytesTransferred.
const (
	DirectionRead  = "read"
	DirectionWrite = "write"
)

// RPCMetrics provides observability for the file service and its listener.
//
// This interface is optional - if not provided to the RPC adapter or the
// gateway, a no-op implementation is used.
type RPCMetrics interface {
	// RecordRequest records a completed call.
	//
	// Parameters:
	//   - method: Short method name (e.g., "Read", "Stat")
	//   - directory: Root directory the call addressed, "" if none
	//   - duration: Time taken to process the call
	//   - code: gRPC status code name, "OK" on success
	RecordRequest(method string, directory string, duration time.Duration, code string)

	// RecordRequestStart increments the in-flight gauge for method.
	RecordRequestStart(method string)

	// RecordRequestEnd decrements the in-flight gauge for method.
	RecordRequestEnd(method string)

	// RecordBytesTransferred records file payload bytes moved.
	//
	// Parameters:
	//   - directory: Root directory name
	//   - direction: DirectionRead or DirectionWrite
	//   - bytes: Number of payload bytes
	RecordBytesTransferred(directory string, direction string, bytes uint64)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionRejected increments the counter of connections refused
	// by the origin allowlist.
	RecordConnectionRejected()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections cut during a shutdown
	// that exceeded its timeout.
	RecordConnectionForceClosed()
}

// NewNoopRPCMetrics returns an RPCMetrics that discards everything.
func NewNoopRPCMetrics() RPCMetrics {
	return noopRPCMetrics{}
}

type noopRPCMetrics struct{}

func (noopRPCMetrics) RecordRequest(string, string, time.Duration, string) {}
func (noopRPCMetrics) RecordRequestStart(string)                          {}
func (noopRPCMetrics) RecordRequestEnd(string)                            {}
func (noopRPCMetrics) RecordBytesTransferred(string, string, uint64)      {}
func (noopRPCMetrics) SetActiveConnections(int32)                         {}
func (noopRPCMetrics) RecordConnectionAccepted()                          {}
func (noopRPCMetrics) RecordConnectionRejected()                          {}
func (noopRPCMetrics) RecordConnectionClosed()                            {}
func (noopRPCMetrics) RecordConnectionForceClosed()                       {}
