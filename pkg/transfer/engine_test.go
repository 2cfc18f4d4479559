package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bert42/fileserver/pkg/access"
	"github.com/bert42/fileserver/pkg/fserrors"
	"github.com/bert42/fileserver/pkg/storage"
	"github.com/bert42/fileserver/pkg/storage/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyStore counts calls reaching storage and can inject a failing reader.
type spyStore struct {
	storage.Store
	calls     atomic.Int32
	failAfter int64
	closed    atomic.Bool
}

func (s *spyStore) OpenRange(ctx context.Context, path string, offset uint64, length *uint64) (*storage.Section, error) {
	s.calls.Add(1)
	section, err := s.Store.OpenRange(ctx, path, offset, length)
	if err != nil {
		return nil, err
	}
	if s.failAfter > 0 {
		_ = section.Close()
		return storage.NewSection(failingReader{after: s.failAfter}, nil, section.Offset(), section.Size()), nil
	}

	closer := closeFunc(func() error {
		s.closed.Store(true)
		return section.Close()
	})
	return storage.NewSection(shifted{section, section.Offset()}, closer, section.Offset(), section.Size()), nil
}

// shifted maps absolute file offsets back onto a section-relative reader.
type shifted struct {
	r    io.ReaderAt
	base int64
}

func (s shifted) ReadAt(p []byte, off int64) (int, error) {
	return s.r.ReadAt(p, off-s.base)
}

func (s *spyStore) Write(ctx context.Context, path string, data []byte, offset *uint64) (uint64, error) {
	s.calls.Add(1)
	return s.Store.Write(ctx, path, data, offset)
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

type failingReader struct{ after int64 }

func (r failingReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.after {
		return 0, errors.New("disk read error")
	}
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

// sliceSource replays a fixed list of chunks and then returns io.EOF.
type sliceSource struct {
	chunks []*Chunk
	next   int
}

func (s *sliceSource) Recv() (*Chunk, error) {
	if s.next >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.next]
	s.next++
	return c, nil
}

type fixture struct {
	engine  *Engine
	store   *spyStore
	docs    string
	uploads string
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	base := t.TempDir()
	docs := filepath.Join(base, "docs")
	uploads := filepath.Join(base, "uploads")
	require.NoError(t, os.MkdirAll(docs, 0755))
	require.NoError(t, os.MkdirAll(uploads, 0755))

	acc, err := access.New([]access.DirectoryRoot{
		{Name: "docs", Path: docs, Permission: access.ReadOnly},
		{Name: "uploads", Path: uploads, Permission: access.ReadWrite},
	}, nil, access.Options{})
	require.NoError(t, err)

	store := &spyStore{Store: local.New(local.Config{})}
	return &fixture{engine: New(acc, store, cfg), store: store, docs: docs, uploads: uploads}
}

// splitChunks slices data the way a client does: ChunkSize segments with
// offsets i*ChunkSize, the final one marked last.
func splitChunks(path string, data []byte, size int) []*Chunk {
	if len(data) == 0 {
		return []*Chunk{{Path: path, IsLast: true}}
	}
	var chunks []*Chunk
	for off := 0; off < len(data); off += size {
		end := min(off+size, len(data))
		chunks = append(chunks, &Chunk{
			Path:   path,
			Data:   data[off:end],
			Offset: uint64(off),
			IsLast: end == len(data),
		})
	}
	return chunks
}

func collect(t *testing.T, results <-chan Result) ([]*Chunk, error) {
	t.Helper()
	var chunks []*Chunk
	for r := range results {
		if r.Err != nil {
			return chunks, r.Err
		}
		chunks = append(chunks, r.Chunk)
	}
	return chunks, nil
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	data := bytes.Repeat([]byte("0123456789abcdef"), (2*ChunkSize+10)/16+1)[:2*ChunkSize+10]

	res, err := f.engine.Write(ctx, &sliceSource{chunks: splitChunks("uploads/big.bin", data, ChunkSize)})
	require.NoError(t, err)
	assert.Equal(t, uint64(len(data)), res.BytesWritten)
	assert.Equal(t, "uploads/big.bin", res.Path)

	results, err := f.engine.Read(ctx, ReadRequest{Path: "uploads/big.bin"})
	require.NoError(t, err)
	chunks, err := collect(t, results)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	var got []byte
	for i, c := range chunks {
		assert.Equal(t, uint64(i*ChunkSize), c.Offset)
		assert.Equal(t, i == 2, c.IsLast)
		assert.Equal(t, "uploads/big.bin", c.Path)
		got = append(got, c.Data...)
	}
	assert.Equal(t, data, got)
	assert.Len(t, chunks[2].Data, 10)
}

func TestReadExactMultipleOfChunkSize(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, os.WriteFile(filepath.Join(f.docs, "even.bin"), make([]byte, 2*ChunkSize), 0644))

	results, err := f.engine.Read(context.Background(), ReadRequest{Path: "docs/even.bin"})
	require.NoError(t, err)
	chunks, err := collect(t, results)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.False(t, chunks[0].IsLast)
	assert.True(t, chunks[1].IsLast)
	assert.Len(t, chunks[1].Data, ChunkSize)
}

func TestReadEmptyRange(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, os.WriteFile(filepath.Join(f.docs, "hello.txt"), []byte("Hello, World!"), 0644))

	results, err := f.engine.Read(context.Background(), ReadRequest{Path: "docs/hello.txt", Offset: 13})
	require.NoError(t, err)
	chunks, err := collect(t, results)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].IsLast)
	assert.Empty(t, chunks[0].Data)
	assert.Equal(t, uint64(13), chunks[0].Offset)
}

func TestReadPartialRange(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, os.WriteFile(filepath.Join(f.docs, "hello.txt"), []byte("Hello, World!"), 0644))

	length := uint64(5)
	var got []*Chunk
	n, err := f.engine.ReadTo(context.Background(), ReadRequest{Path: "docs/hello.txt", Offset: 7, Length: &length},
		func(c *Chunk) error {
			got = append(got, c)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
	require.Len(t, got, 1)
	assert.Equal(t, "World", string(got[0].Data))
	assert.Equal(t, uint64(7), got[0].Offset)
}

func TestReadAuthorizationFailsBeforeStorage(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.engine.Read(context.Background(), ReadRequest{Path: "docs/../../etc/passwd"})
	assert.Equal(t, fserrors.InvalidPath, fserrors.CodeOf(err))

	_, err = f.engine.Read(context.Background(), ReadRequest{Path: "secret/file"})
	assert.Equal(t, fserrors.PermissionDenied, fserrors.CodeOf(err))

	assert.Zero(t, f.store.calls.Load())
}

func TestReadMidStreamFailure(t *testing.T) {
	f := newFixture(t, Config{ChunkSize: 4})
	f.store.failAfter = 8
	require.NoError(t, os.WriteFile(filepath.Join(f.docs, "f.bin"), make([]byte, 20), 0644))

	results, err := f.engine.Read(context.Background(), ReadRequest{Path: "docs/f.bin"})
	require.NoError(t, err)

	chunks, err := collect(t, results)
	assert.Len(t, chunks, 2)
	assert.Equal(t, fserrors.Internal, fserrors.CodeOf(err))

	// channel is closed after the terminal error
	_, open := <-results
	assert.False(t, open)
}

func TestReadCancellationStopsProducer(t *testing.T) {
	f := newFixture(t, Config{ChunkSize: 1, StreamDepth: 1})
	require.NoError(t, os.WriteFile(filepath.Join(f.docs, "big.bin"), make([]byte, 1<<20), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	results, err := f.engine.Read(ctx, ReadRequest{Path: "docs/big.bin"})
	require.NoError(t, err)

	<-results
	cancel()

	done := make(chan struct{})
	go func() {
		for range results {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not stop after cancellation")
	}
	assert.Eventually(t, f.store.closed.Load, time.Second, 10*time.Millisecond)
}

func TestReadBackpressure(t *testing.T) {
	f := newFixture(t, Config{ChunkSize: 1, StreamDepth: 2})
	require.NoError(t, os.WriteFile(filepath.Join(f.docs, "f.bin"), make([]byte, 100), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := f.engine.Read(ctx, ReadRequest{Path: "docs/f.bin"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(results) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, len(results))
}

func TestReadToStopsOnSendError(t *testing.T) {
	f := newFixture(t, Config{ChunkSize: 1})
	require.NoError(t, os.WriteFile(filepath.Join(f.docs, "f.bin"), make([]byte, 64), 0644))

	sendErr := errors.New("client went away")
	calls := 0
	_, err := f.engine.ReadTo(context.Background(), ReadRequest{Path: "docs/f.bin"}, func(*Chunk) error {
		calls++
		if calls == 3 {
			return sendErr
		}
		return nil
	})
	assert.ErrorIs(t, err, sendErr)
	assert.Equal(t, 3, calls)
	assert.Eventually(t, f.store.closed.Load, time.Second, 10*time.Millisecond)
}

func TestWriteMixedPathsLeavesTargetUntouched(t *testing.T) {
	f := newFixture(t, Config{})
	target := filepath.Join(f.uploads, "a.txt")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0644))

	_, err := f.engine.Write(context.Background(), &sliceSource{chunks: []*Chunk{
		{Path: "uploads/a.txt", Data: []byte("new"), Offset: 0},
		{Path: "uploads/b.txt", Data: []byte("data"), Offset: 3, IsLast: true},
	}})
	assert.Equal(t, fserrors.InvalidArgument, fserrors.CodeOf(err))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
	assert.NoFileExists(t, filepath.Join(f.uploads, "b.txt"))
	assert.Zero(t, f.store.calls.Load())
}

func TestWriteWithoutFinalChunk(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.engine.Write(context.Background(), &sliceSource{chunks: []*Chunk{
		{Path: "uploads/a.txt", Data: []byte("partial"), Offset: 0},
	}})
	assert.Equal(t, fserrors.InvalidArgument, fserrors.CodeOf(err))
	assert.Contains(t, err.Error(), "No data received")
	assert.NoFileExists(t, filepath.Join(f.uploads, "a.txt"))
}

func TestWriteZeroChunks(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.engine.Write(context.Background(), &sliceSource{})
	assert.Equal(t, fserrors.InvalidArgument, fserrors.CodeOf(err))
	assert.Zero(t, f.store.calls.Load())
}

func TestWriteEmptyPayload(t *testing.T) {
	f := newFixture(t, Config{})

	res, err := f.engine.Write(context.Background(), &sliceSource{chunks: splitChunks("uploads/empty.txt", nil, ChunkSize)})
	require.NoError(t, err)
	assert.Zero(t, res.BytesWritten)
	assert.FileExists(t, filepath.Join(f.uploads, "empty.txt"))
}

func TestWriteOffsetGap(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.engine.Write(context.Background(), &sliceSource{chunks: []*Chunk{
		{Path: "uploads/a.txt", Data: []byte("abc"), Offset: 0},
		{Path: "uploads/a.txt", Data: []byte("def"), Offset: 10, IsLast: true},
	}})
	assert.Equal(t, fserrors.InvalidArgument, fserrors.CodeOf(err))
	assert.NoFileExists(t, filepath.Join(f.uploads, "a.txt"))
}

func TestWriteIgnoresChunksAfterFinal(t *testing.T) {
	f := newFixture(t, Config{})
	src := &sliceSource{chunks: []*Chunk{
		{Path: "uploads/a.txt", Data: []byte("abc"), IsLast: true},
		{Path: "uploads/other.txt", Data: []byte("zzz"), Offset: 3},
	}}

	res, err := f.engine.Write(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.BytesWritten)
	assert.Equal(t, 1, src.next)
}

func TestWriteAtBaseOffset(t *testing.T) {
	f := newFixture(t, Config{})
	target := filepath.Join(f.uploads, "hello.txt")
	require.NoError(t, os.WriteFile(target, []byte("Hello, World!"), 0644))

	_, err := f.engine.Write(context.Background(), &sliceSource{chunks: []*Chunk{
		{Path: "uploads/hello.txt", Data: []byte("RU"), Offset: 7},
		{Path: "uploads/hello.txt", Data: []byte("ST"), Offset: 9, IsLast: true},
	}})
	require.NoError(t, err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "Hello, RUSTd!", string(got))
}

func TestWriteReadOnlyRoot(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.engine.Write(context.Background(), &sliceSource{chunks: splitChunks("docs/a.txt", []byte("x"), ChunkSize)})
	assert.Equal(t, fserrors.PermissionDenied, fserrors.CodeOf(err))
	assert.NoFileExists(t, filepath.Join(f.docs, "a.txt"))
}

func TestWriteMaxSize(t *testing.T) {
	f := newFixture(t, Config{MaxWriteSize: 4})

	_, err := f.engine.Write(context.Background(), &sliceSource{chunks: splitChunks("uploads/a.txt", []byte("too large"), 2)})
	assert.Equal(t, fserrors.InvalidArgument, fserrors.CodeOf(err))
}

func TestWriteSourceError(t *testing.T) {
	f := newFixture(t, Config{})
	recvErr := errors.New("stream reset")

	_, err := f.engine.Write(context.Background(), sourceFunc(func() (*Chunk, error) { return nil, recvErr }))
	assert.ErrorIs(t, err, recvErr)
}

type sourceFunc func() (*Chunk, error)

func (f sourceFunc) Recv() (*Chunk, error) { return f() }
