package transfer

import (
	"context"
	"errors"
	"io"

	"github.com/bert42/fileserver/internal/logger"
	"github.com/bert42/fileserver/pkg/access"
	"github.com/bert42/fileserver/pkg/fserrors"
	"github.com/bert42/fileserver/pkg/storage"
)

// Resolver authorizes a virtual path for an operation.
//
// *access.Engine satisfies this interface.
type Resolver interface {
	ResolveVirtual(virtualPath string, op access.Operation) (access.ResolvedPath, error)
}

// Config tunes an Engine.
type Config struct {
	// ChunkSize overrides the read chunk size. 0 uses ChunkSize.
	ChunkSize int

	// StreamDepth overrides the read channel capacity. 0 uses StreamDepth.
	StreamDepth int

	// MaxWriteSize bounds the bytes accumulated by one write transfer.
	// 0 means unlimited.
	MaxWriteSize uint64
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = ChunkSize
	}
	if c.StreamDepth <= 0 {
		c.StreamDepth = StreamDepth
	}
}

// Engine runs read and write transfers.
//
// Thread safety:
// Safe for concurrent use. Each transfer owns its buffers; the engine holds
// no per-transfer state.
type Engine struct {
	resolver Resolver
	store    storage.Store
	cfg      Config
}

// New creates a transfer engine over the given resolver and store.
func New(resolver Resolver, store storage.Store, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{resolver: resolver, store: store, cfg: cfg}
}

// ReadRequest describes the byte range of a read transfer.
type ReadRequest struct {
	Path   string
	Offset uint64

	// Length limits the range; nil reads to the end of the file.
	Length *uint64
}

// Read authorizes the request, opens the range, and starts the producer.
//
// Authorization and open failures are returned directly, before any chunk
// is produced. Afterwards the returned channel yields chunks in order and is
// closed when the transfer completes, fails, or ctx is cancelled. A mid-stream
// I/O failure is delivered as a single Result with Err set.
//
// An empty range yields exactly one empty chunk with IsLast set.
func (e *Engine) Read(ctx context.Context, req ReadRequest) (<-chan Result, error) {
	// ========================================================================
	// Step 1: Authorize and open the range
	// ========================================================================

	resolved, err := e.resolver.ResolveVirtual(req.Path, access.Read)
	if err != nil {
		return nil, err
	}

	section, err := e.store.OpenRange(ctx, resolved.Path, req.Offset, req.Length)
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Stream chunks from a dedicated producer
	// ========================================================================

	out := make(chan Result, e.cfg.StreamDepth)
	go e.produce(ctx, req.Path, section, out)
	return out, nil
}

// produce reads the section chunk by chunk and emits it on out.
//
// The producer exits as soon as ctx is done, so a departed consumer stops
// disk I/O rather than only emission.
func (e *Engine) produce(ctx context.Context, path string, section *storage.Section, out chan<- Result) {
	defer close(out)
	defer func() { _ = section.Close() }()

	offset := uint64(section.Offset())
	remaining := section.Size()

	for {
		n := min(int64(e.cfg.ChunkSize), remaining)
		buf := make([]byte, n)

		if _, err := io.ReadFull(section, buf); err != nil {
			logger.Debug("Read transfer %s failed at offset %d: %v", path, offset, err)
			e.emit(ctx, out, Result{Err: fserrors.Wrap(fserrors.Internal, err, "read failed")})
			return
		}
		remaining -= n

		chunk := &Chunk{
			Path:   path,
			Data:   buf,
			Offset: offset,
			IsLast: remaining == 0,
		}
		if !e.emit(ctx, out, Result{Chunk: chunk}) {
			logger.Debug("Read transfer %s cancelled at offset %d", path, offset)
			return
		}

		offset += uint64(n)
		if chunk.IsLast {
			return
		}
	}
}

// emit sends r unless ctx is cancelled first. Reports whether r was sent.
func (e *Engine) emit(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// ReadTo runs a read transfer and passes every chunk to send in order.
//
// If send fails, the producer is cancelled and the send error is returned.
// Returns the number of payload bytes delivered.
func (e *Engine) ReadTo(ctx context.Context, req ReadRequest, send func(*Chunk) error) (uint64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := e.Read(ctx, req)
	if err != nil {
		return 0, err
	}

	var sent uint64
	for r := range results {
		if r.Err != nil {
			return sent, r.Err
		}
		if err := send(r.Chunk); err != nil {
			return sent, err
		}
		sent += uint64(len(r.Chunk.Data))
	}

	if err := ctx.Err(); err != nil {
		return sent, err
	}
	return sent, nil
}

// WriteResult reports a committed write transfer.
type WriteResult struct {
	Path         string
	BytesWritten uint64
}

// Write consumes chunks from src until the final chunk, then authorizes the
// path for writing and commits the payload in one storage write.
//
// Every chunk must carry the first chunk's path and an offset equal to the
// first chunk's offset plus the bytes received so far. A stream that ends
// without a final chunk is rejected and nothing is written. When the first
// chunk's offset is non-zero the payload is written at that offset into the
// existing file; otherwise the file is created or truncated.
func (e *Engine) Write(ctx context.Context, src ChunkSource) (WriteResult, error) {
	// ========================================================================
	// Step 1: Receive and accumulate
	// ========================================================================

	var (
		path     string
		base     uint64
		buf      []byte
		started  bool
		complete bool
	)

	for !complete {
		chunk, err := src.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return WriteResult{}, err
		}

		if !started {
			path, base, started = chunk.Path, chunk.Offset, true
		} else if chunk.Path != path {
			return WriteResult{}, errPathMismatch
		}

		expected := base + uint64(len(buf))
		if chunk.Offset != expected {
			return WriteResult{}, fserrors.New(fserrors.InvalidArgument,
				"Chunk offset %d does not match expected offset %d", chunk.Offset, expected)
		}

		if e.cfg.MaxWriteSize > 0 && uint64(len(buf))+uint64(len(chunk.Data)) > e.cfg.MaxWriteSize {
			return WriteResult{}, fserrors.New(fserrors.InvalidArgument,
				"Transfer exceeds maximum size of %d bytes", e.cfg.MaxWriteSize)
		}

		buf = append(buf, chunk.Data...)
		complete = chunk.IsLast
	}

	if !complete {
		return WriteResult{}, errNoData
	}

	// ========================================================================
	// Step 2: Authorize once, then commit
	// ========================================================================

	resolved, err := e.resolver.ResolveVirtual(path, access.Write)
	if err != nil {
		return WriteResult{}, err
	}

	var offset *uint64
	if base > 0 {
		offset = &base
	}

	n, err := e.store.Write(ctx, resolved.Path, buf, offset)
	if err != nil {
		return WriteResult{}, err
	}

	return WriteResult{Path: path, BytesWritten: n}, nil
}
