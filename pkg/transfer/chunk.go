// Package transfer implements chunked streaming of file payloads.
//
// Reads are produced by a goroutine that slices the requested byte range
// into ChunkSize segments and feeds them over a bounded channel of depth
// StreamDepth. A slow consumer fills the channel and suspends the producer,
// which is the only backpressure mechanism. Cancelling the context stops the
// producer and closes the channel.
//
// Writes are driven by the inbound chunk stream: payloads are accumulated in
// arrival order, and only once the final chunk has arrived is the path
// authorized (once) and the payload committed to storage in a single write.
package transfer

import "github.com/bert42/fileserver/pkg/fserrors"

const (
	// ChunkSize is the payload size of every chunk except possibly the last.
	ChunkSize = 64 * 1024

	// StreamDepth is the capacity of the read producer's channel.
	StreamDepth = 4
)

// Chunk is one segment of a streamed file payload.
//
// Within one transfer every chunk carries the same Path, offsets are
// contiguous with the bytes sent so far, and exactly the final chunk has
// IsLast set.
type Chunk struct {
	Path   string
	Data   []byte
	Offset uint64
	IsLast bool
}

// Result is one item delivered by a read stream: either a chunk or a
// terminal error. After an error no further items are sent.
type Result struct {
	Chunk *Chunk
	Err   error
}

// ChunkSource yields inbound chunks. Recv returns io.EOF when the sender has
// finished.
type ChunkSource interface {
	Recv() (*Chunk, error)
}

var (
	errNoData       = fserrors.New(fserrors.InvalidArgument, "No data received")
	errPathMismatch = fserrors.New(fserrors.InvalidArgument, "All chunks must have the same path")
)
