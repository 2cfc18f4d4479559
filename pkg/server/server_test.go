package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter blocks in Serve until ctx is done or Stop is called.
type fakeAdapter struct {
	protocol string
	port     int
	serveErr error
	stopLog  *stopLog

	stopOnce sync.Once
	stopped  chan struct{}
	started  chan struct{}
}

type stopLog struct {
	mu    sync.Mutex
	order []string
}

func (l *stopLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, name)
}

func (l *stopLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

func newFake(protocol string, port int, log *stopLog) *fakeAdapter {
	return &fakeAdapter{
		protocol: protocol,
		port:     port,
		stopLog:  log,
		stopped:  make(chan struct{}),
		started:  make(chan struct{}),
	}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	close(f.started)
	if f.serveErr != nil {
		return f.serveErr
	}
	select {
	case <-ctx.Done():
	case <-f.stopped:
	}
	return nil
}

func (f *fakeAdapter) Stop(context.Context) error {
	f.stopOnce.Do(func() {
		if f.stopLog != nil {
			f.stopLog.add(f.protocol)
		}
		close(f.stopped)
	})
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Port() int        { return f.port }

func TestAddAdapterRejectsConflicts(t *testing.T) {
	srv := New()
	require.NoError(t, srv.AddAdapter(newFake("gRPC", 50051, nil)))

	assert.Error(t, srv.AddAdapter(newFake("gRPC", 50052, nil)), "duplicate protocol")
	assert.Error(t, srv.AddAdapter(newFake("HTTP", 50051, nil)), "duplicate port")
	assert.NoError(t, srv.AddAdapter(newFake("HTTP", 0, nil)))
	assert.Len(t, srv.Adapters(), 2)

	assert.Panics(t, func() { _ = srv.AddAdapter(nil) })
}

func TestServeWithoutAdapters(t *testing.T) {
	assert.Error(t, New().Serve(context.Background()))
}

func TestServeStopsAdaptersInReverseOrder(t *testing.T) {
	log := &stopLog{}
	first := newFake("first", 1, log)
	second := newFake("second", 2, log)

	srv := New()
	require.NoError(t, srv.AddAdapter(first))
	require.NoError(t, srv.AddAdapter(second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	<-first.started
	<-second.started
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Equal(t, []string{"second", "first"}, log.get())

	assert.ErrorIs(t, srv.Serve(context.Background()), ErrAlreadyServed)
	assert.Error(t, srv.AddAdapter(newFake("late", 3, nil)))
}

func TestAdapterFailureStopsOthers(t *testing.T) {
	healthy := newFake("healthy", 1, nil)
	broken := newFake("broken", 2, nil)
	broken.serveErr = errors.New("bind failed")

	srv := New()
	require.NoError(t, srv.AddAdapter(healthy))
	require.NoError(t, srv.AddAdapter(broken))

	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind failed")

	select {
	case <-healthy.stopped:
	default:
		t.Fatal("healthy adapter was not stopped")
	}
}
