package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bert42/fileserver/pkg/fsrpc"
	"github.com/bert42/fileserver/pkg/transfer"
)

// ReadOptions selects the byte range of a read. Nil fields use the server
// defaults (offset 0, to end of file).
type ReadOptions struct {
	Offset *uint64
	Length *uint64
}

// Read streams a file range into w and returns the number of bytes copied.
//
// Chunk offsets are checked to be contiguous, and the stream must end with
// a final chunk; anything else is reported as an error even if bytes were
// already written to w.
func (c *Client) Read(ctx context.Context, path string, opts ReadOptions, w io.Writer) (uint64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req := &fsrpc.ReadRequest{Path: path}
	if opts.Offset != nil {
		req.HasOffset, req.Offset = true, *opts.Offset
	}
	if opts.Length != nil {
		req.HasLength, req.Length = true, *opts.Length
	}

	stream, err := c.rpc.Read(ctx, req)
	if err != nil {
		return 0, err
	}

	var (
		copied   uint64
		expected uint64
		started  bool
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return copied, fmt.Errorf("read %s: stream ended before final chunk", path)
		}
		if err != nil {
			return copied, err
		}

		if started && chunk.Offset != expected {
			return copied, fmt.Errorf("read %s: chunk at offset %d, expected %d", path, chunk.Offset, expected)
		}
		started = true
		expected = chunk.Offset + uint64(len(chunk.Data))

		n, err := w.Write(chunk.Data)
		copied += uint64(n)
		if err != nil {
			return copied, err
		}

		if chunk.IsLast {
			return copied, nil
		}
	}
}

// ReadAll reads a file range into memory.
func (c *Client) ReadAll(ctx context.Context, path string, opts ReadOptions) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.Read(ctx, path, opts, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams r to path, creating or truncating the file.
//
// The payload is sent in transfer.ChunkSize chunks with contiguous offsets;
// the final chunk is flagged last. An empty payload is sent as a single
// empty final chunk.
func (c *Client) Write(ctx context.Context, path string, r io.Reader) (*fsrpc.WriteResponse, error) {
	return c.WriteAt(ctx, path, r, 0)
}

// WriteBytes writes data to path, creating or truncating the file.
func (c *Client) WriteBytes(ctx context.Context, path string, data []byte) (*fsrpc.WriteResponse, error) {
	return c.WriteAt(ctx, path, bytes.NewReader(data), 0)
}

// WriteAt streams r into the existing file at path starting at offset.
// An offset of 0 creates or truncates the file instead.
func (c *Client) WriteAt(ctx context.Context, path string, r io.Reader, offset uint64) (*fsrpc.WriteResponse, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.rpc.Write(ctx)
	if err != nil {
		return nil, err
	}

	// Read one chunk ahead so the final chunk can be flagged.
	current, err := readChunk(r)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	for {
		next, err := readChunk(r)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		last := len(next) == 0

		msg := &fsrpc.DataChunk{Path: path, Data: current, Offset: offset, IsLast: last}
		if err := stream.Send(msg); err != nil {
			// the server's status is reported by CloseAndRecv
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		offset += uint64(len(current))
		if last {
			break
		}
		current = next
	}

	return stream.CloseAndRecv()
}

// readChunk reads up to transfer.ChunkSize bytes. It returns a short or
// empty slice with io.EOF at the end of r.
func readChunk(r io.Reader) ([]byte, error) {
	buf := make([]byte, transfer.ChunkSize)
	n, err := io.ReadFull(r, buf)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return buf[:n], io.EOF
	case err != nil:
		return nil, err
	}
	return buf, nil
}
