package dirty

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(q *Queue) []Region {
	var out []Region
	for {
		r, ok := q.RemoveNext()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

func TestQueue_MergeInsert(t *testing.T) {
	q := NewQueue()
	assert.False(t, q.Add(NewInsert(5, "a")))
	assert.True(t, q.Add(NewInsert(6, "b")))

	require.Equal(t, 1, q.Size())
	r, ok := q.RemoveNext()
	require.True(t, ok)
	assert.Equal(t, Region{Type: Insert, Offset: 5, Length: 2, Text: "ab"}, r)
}

func TestQueue_MergeRemove(t *testing.T) {
	q := NewQueue()
	q.Add(NewRemove(4, 2))
	q.Add(NewRemove(2, 2))

	require.Equal(t, 1, q.Size())
	r, _ := q.RemoveNext()
	assert.Equal(t, NewRemove(2, 4), r)
}

func TestQueue_NonMergeableBoundary(t *testing.T) {
	q := NewQueue()
	q.Add(NewInsert(5, "x"))
	q.Add(NewRemove(6, 1))

	assert.Equal(t, []Region{NewInsert(5, "x"), NewRemove(6, 1)}, drain(q))
}

func TestQueue_NotAdjacent(t *testing.T) {
	tests := []struct {
		name  string
		first Region
		next  Region
	}{
		{"insert gap", NewInsert(5, "a"), NewInsert(7, "b")},
		{"insert before tail", NewInsert(5, "a"), NewInsert(5, "b")},
		{"remove forward", NewRemove(5, 1), NewRemove(5, 1)},
		{"remove gap", NewRemove(5, 1), NewRemove(2, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue()
			q.Add(tt.first)
			q.Add(tt.next)
			assert.Equal(t, []Region{tt.first, tt.next}, drain(q))
		})
	}
}

func TestQueue_MergesOnlyWithTail(t *testing.T) {
	q := NewQueue()
	q.Add(NewInsert(0, "a"))
	q.Add(NewRemove(10, 1))
	q.Add(NewInsert(1, "b"))

	assert.Equal(t, 3, q.Size())
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	a, b, c := NewInsert(0, "a"), NewRemove(10, 1), NewInsert(20, "c")
	q.Add(a)
	q.Add(b)
	q.Add(c)

	for _, want := range []Region{a, b, c} {
		got, ok := q.RemoveNext()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := q.RemoveNext()
	assert.False(t, ok)
}

func TestQueue_Purge(t *testing.T) {
	q := NewQueue()
	q.Add(NewInsert(0, "a"))
	q.Add(NewRemove(10, 1))
	before := q.Stamp()

	q.Purge()

	assert.Equal(t, 0, q.Size())
	_, ok := q.RemoveNext()
	assert.False(t, ok)
	assert.NotEqual(t, before, q.Stamp())
}

func TestQueue_WaitWakesOnAdd(t *testing.T) {
	q := NewQueue()
	done := make(chan error, 1)
	go func() {
		done <- q.Wait(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	q.Add(NewInsert(0, "a"))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Add")
	}
}

func TestQueue_WaitReturnsImmediatelyWhenNonEmpty(t *testing.T) {
	q := NewQueue()
	q.Add(NewInsert(0, "a"))
	require.NoError(t, q.Wait(context.Background()))
}

func TestQueue_CloseReleasesWaiters(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- q.Wait(context.Background())
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, ErrClosed)
	}
	assert.True(t, q.Closed())
	assert.False(t, q.Add(NewInsert(0, "a")))
	assert.Equal(t, 0, q.Size())
}

func TestQueue_WaitHonorsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := q.Wait(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for p := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				q.Add(NewRemove(p*10000+i*10, 1))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, drain(q), 400)
}

func TestRegion_String(t *testing.T) {
	assert.Equal(t, "INSERT(5, 2)", NewInsert(5, "ab").String())
	assert.Equal(t, "REMOVE(1, 3)", NewRemove(1, 3).String())
	assert.Equal(t, "Type(9)", Type(9).String())
}
