package watcher

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mu     sync.Mutex
	events chan Event
	errors chan error
	closed bool
}

func newMockSource() *mockSource {
	return &mockSource{
		events: make(chan Event, 100),
		errors: make(chan error, 100),
	}
}

func (m *mockSource) Events() <-chan Event { return m.events }
func (m *mockSource) Errors() <-chan error { return m.errors }

func (m *mockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
		close(m.errors)
	}
	return nil
}

func (m *mockSource) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// waitPending polls until the debouncer has taken n paths from the source.
func waitPending(t *testing.T, d *Debouncer, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return d.PendingCount() == n
	}, time.Second, time.Millisecond, "PendingCount never reached %d", n)
}

func receive[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timeout waiting for "+what)
	}
	var zero T
	return zero
}

func TestNewDebouncer_DefaultDelay(t *testing.T) {
	d := NewDebouncer(newMockSource(), 0)
	defer d.Close()

	assert.Equal(t, DefaultDebounce, d.Delay())
}

func TestDebouncer_SingleEvent(t *testing.T) {
	src := newMockSource()
	d := NewDebouncer(src, 20*time.Millisecond)
	defer d.Close()

	src.events <- Event{Path: "/a.txt", Op: OpWrite}

	event := receive(t, d.Events(), "event")
	assert.Equal(t, "/a.txt", event.Path)
	assert.Equal(t, OpWrite, event.Op)
}

func TestDebouncer_Coalescing(t *testing.T) {
	src := newMockSource()
	d := NewDebouncer(src, time.Hour)
	defer d.Close()

	now := time.Now()
	src.events <- Event{Path: "/a.txt", Op: OpRename, Timestamp: now}
	src.events <- Event{Path: "/a.txt", Op: OpCreate, Timestamp: now.Add(time.Millisecond)}
	src.events <- Event{Path: "/a.txt", Op: OpWrite, Timestamp: now.Add(2 * time.Millisecond)}
	src.events <- Event{Path: "/b.txt", Op: OpWrite, Timestamp: now}
	waitPending(t, d, 2)

	// The third event for /a.txt may still be in flight
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.pending["/a.txt"].event.Op.Has(OpWrite)
	}, time.Second, time.Millisecond)

	d.Flush()

	got := make(map[string]Event)
	for range 2 {
		event := receive(t, d.Events(), "flushed events")
		got[event.Path] = event
	}

	a := got["/a.txt"]
	assert.Equal(t, OpCreate|OpWrite|OpRename, a.Op)
	assert.True(t, a.Timestamp.Equal(now.Add(2*time.Millisecond)), "timestamp %v is not the latest", a.Timestamp)
	assert.Equal(t, OpWrite, got["/b.txt"].Op)
	assert.Zero(t, d.PendingCount())
}

func TestDebouncer_ErrorForwarding(t *testing.T) {
	src := newMockSource()
	d := NewDebouncer(src, time.Hour)
	defer d.Close()

	testErr := errors.New("overflow")
	src.errors <- testErr

	assert.Equal(t, testErr, receive(t, d.Errors(), "error"))
}

func TestDebouncer_CloseWithPending(t *testing.T) {
	src := newMockSource()
	d := NewDebouncer(src, time.Hour)

	src.events <- Event{Path: "/a.txt", Op: OpWrite}
	waitPending(t, d, 1)

	require.NoError(t, d.Close())
	assert.True(t, src.isClosed(), "inner source should be closed")
	_, ok := <-d.Events()
	assert.False(t, ok, "events channel should close without delivering pending events")
	assert.NoError(t, d.Close())

	// Flushing after close delivers nothing and does not panic
	d.Flush()
}
