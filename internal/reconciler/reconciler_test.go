package reconciler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/reconcile/internal/engine/document"
	"github.com/dshills/reconcile/internal/reconciler/dirty"
)

type call struct {
	Region    dirty.Region
	Partition document.TypedRegion
}

// recorder is a Strategy that records every call.
type recorder struct {
	mu       sync.Mutex
	doc      *document.Document
	docSets  int
	calls    []call
	initial  int
	fail     func(call) error
	initFail error
}

func (r *recorder) SetDocument(doc *document.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc
	r.docSets++
}

func (r *recorder) Reconcile(_ context.Context, region dirty.Region, partition document.TypedRegion) error {
	r.mu.Lock()
	c := call{Region: region, Partition: partition}
	r.calls = append(r.calls, c)
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return fail(c)
	}
	return nil
}

func (r *recorder) InitialReconcile(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initial++
	return r.initFail
}

func (r *recorder) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recorder) Document() *document.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}

func newDoc(t *testing.T, text string, opts ...document.Option) *document.Document {
	t.Helper()
	doc, err := document.New(append([]document.Option{document.WithContent(text)}, opts...)...)
	require.NoError(t, err)
	return doc
}

func install(t *testing.T, r *Reconciler, doc *document.Document) {
	t.Helper()
	require.NoError(t, r.Install(context.Background(), doc))
	t.Cleanup(func() {
		if r.IsInstalled() {
			_ = r.Uninstall()
		}
	})
}

func waitCalls(t *testing.T, rec *recorder, n int) []call {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(rec.Calls()) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return rec.Calls()
}

func TestDecompose(t *testing.T) {
	tests := []struct {
		name  string
		event document.Event
		want  []dirty.Region
	}{
		{"insert", document.Event{Offset: 3, Text: "ab"}, []dirty.Region{dirty.NewInsert(3, "ab")}},
		{"remove", document.Event{Offset: 3, Length: 2}, []dirty.Region{dirty.NewRemove(3, 2)}},
		{"replace", document.Event{Offset: 3, Length: 2, Text: "xyz"}, []dirty.Region{dirty.NewRemove(3, 2), dirty.NewInsert(3, "xyz")}},
		{"no-op", document.Event{Offset: 3}, []dirty.Region{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decompose(tt.event))
		})
	}
}

func TestReplaceDecompositionIsNotMerged(t *testing.T) {
	// REMOVE followed by INSERT at the same offset must stay two regions.
	q := dirty.NewQueue()
	for _, r := range Decompose(document.Event{Offset: 5, Length: 1, Text: "x"}) {
		q.Add(r)
	}
	assert.Equal(t, 2, q.Size())
}

func TestInstallErrors(t *testing.T) {
	r := New()
	assert.ErrorIs(t, r.Install(context.Background(), nil), ErrNilDocument)
	assert.ErrorIs(t, r.Uninstall(), ErrNotInstalled)

	doc := newDoc(t, "x")
	install(t, r, doc)
	assert.ErrorIs(t, r.Install(context.Background(), doc), ErrAlreadyInstalled)
	assert.True(t, r.IsInstalled())
}

func TestReconciler_MergesTyping(t *testing.T) {
	rec := &recorder{}
	r := New(WithDefaultStrategy(rec), WithDelay(50*time.Millisecond))
	doc := newDoc(t, "")
	install(t, r, doc)

	for i, s := range []string{"a", "b", "c"} {
		require.NoError(t, doc.Replace(i, 0, s))
	}

	calls := waitCalls(t, rec, 1)
	require.Len(t, calls, 1)
	assert.Equal(t, dirty.Region{Type: dirty.Insert, Offset: 0, Length: 3, Text: "abc"}, calls[0].Region)
	assert.Equal(t, document.TypedRegion{Offset: 0, Length: 3, Type: document.DefaultContentType}, calls[0].Partition)

	stats := r.Stats()
	assert.Equal(t, uint64(3), stats.Enqueued)
	assert.Equal(t, uint64(2), stats.Merged)
	assert.Equal(t, uint64(1), stats.Processed)
}

func TestReconciler_ReplaceDeliveredInOrder(t *testing.T) {
	rec := &recorder{}
	r := New(WithDefaultStrategy(rec), WithDelay(20*time.Millisecond))
	doc := newDoc(t, "hello world")
	install(t, r, doc)

	require.NoError(t, doc.Replace(0, 5, "HELLO"))

	calls := waitCalls(t, rec, 2)
	require.Len(t, calls, 2)
	assert.Equal(t, dirty.NewRemove(0, 5), calls[0].Region)
	assert.Equal(t, 0, calls[0].Partition.Length)
	assert.Equal(t, dirty.NewInsert(0, "HELLO"), calls[1].Region)
	assert.Equal(t, document.TypedRegion{Offset: 0, Length: 5, Type: document.DefaultContentType}, calls[1].Partition)
}

func TestReconciler_DispatchesByContentType(t *testing.T) {
	comments, code := &recorder{}, &recorder{}
	r := New(
		WithStrategy("comment", comments),
		WithDefaultStrategy(code),
		WithDelay(0),
	)
	p := document.NewRulePartitioner("", document.Rule{Start: "/*", End: "*/", ContentType: "comment"})
	doc := newDoc(t, "", document.WithPartitioner(p))
	install(t, r, doc)

	assert.Same(t, comments, r.Strategy("comment"))
	assert.Same(t, code, r.Strategy("anything"))

	require.NoError(t, doc.Replace(0, 0, "ab/*cd*/ef"))

	got := waitCalls(t, comments, 1)
	assert.Equal(t, document.TypedRegion{Offset: 2, Length: 6, Type: "comment"}, got[0].Partition)

	got = waitCalls(t, code, 2)
	assert.Equal(t, []document.TypedRegion{
		{Offset: 0, Length: 2, Type: document.DefaultContentType},
		{Offset: 8, Length: 2, Type: document.DefaultContentType},
	}, []document.TypedRegion{got[0].Partition, got[1].Partition})
}

func TestReconciler_NoStrategySkips(t *testing.T) {
	r := New(WithDelay(0))
	doc := newDoc(t, "")
	install(t, r, doc)

	require.NoError(t, doc.Replace(0, 0, "x"))
	require.Eventually(t, func() bool {
		return r.Stats().Processed == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, r.Stats().StrategyCalls)
}

func TestReconciler_StrategyFailuresAreNotFatal(t *testing.T) {
	var mu sync.Mutex
	var handled []error

	boom := errors.New("boom")
	n := 0
	s := StrategyFunc(func(context.Context, dirty.Region, document.TypedRegion) error {
		mu.Lock()
		defer mu.Unlock()
		n++
		switch n {
		case 1:
			panic("bad strategy")
		case 2:
			return boom
		}
		return nil
	})

	r := New(
		WithDefaultStrategy(s),
		WithDelay(0),
		WithErrorHandler(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, err)
		}),
	)
	doc := newDoc(t, "")
	install(t, r, doc)

	for i := range 3 {
		require.NoError(t, doc.Replace(0, 0, string(rune('a'+i))))
		require.Eventually(t, func() bool {
			return r.Stats().StrategyCalls == uint64(i+1)
		}, 2*time.Second, 5*time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, handled, 2)
	assert.ErrorIs(t, handled[0], ErrStrategyPanic)
	assert.ErrorIs(t, handled[1], boom)

	var se *StrategyError
	require.ErrorAs(t, handled[1], &se)
	assert.Equal(t, document.DefaultContentType, se.ContentType)
	assert.Equal(t, uint64(2), r.Stats().Errors)
}

func TestUninstall_ReleasesBlockedConsumer(t *testing.T) {
	r := New(WithDelay(0))
	doc := newDoc(t, "text")
	require.NoError(t, r.Install(context.Background(), doc))

	done := make(chan error, 1)
	go func() { done <- r.Uninstall() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Uninstall did not return")
	}
	assert.False(t, r.IsInstalled())
	assert.Zero(t, doc.ListenerCount())
}

func TestUninstall_PurgesPendingRegions(t *testing.T) {
	rec := &recorder{}
	r := New(WithDefaultStrategy(rec), WithDelay(time.Hour))
	doc := newDoc(t, "")
	require.NoError(t, r.Install(context.Background(), doc))
	assert.Same(t, doc, rec.Document())

	require.NoError(t, doc.Replace(0, 0, "a"))
	require.NoError(t, doc.Replace(0, 1, ""))
	assert.Equal(t, 2, r.QueueSize())

	require.NoError(t, r.Uninstall())
	assert.Zero(t, r.QueueSize())
	assert.Empty(t, rec.Calls())
	assert.Nil(t, rec.Document())

	// Edits after uninstall are not observed.
	require.NoError(t, doc.Replace(0, 0, "b"))
	assert.Equal(t, uint64(2), r.Stats().Enqueued)
}

func TestReconciler_ContextCancelStopsConsumer(t *testing.T) {
	rec := &recorder{}
	r := New(WithDefaultStrategy(rec), WithDelay(time.Hour))
	doc := newDoc(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Install(ctx, doc))
	require.NoError(t, doc.Replace(0, 0, "a"))
	cancel()

	require.NoError(t, r.Uninstall())
	assert.Empty(t, rec.Calls())
}

func TestReconciler_Force(t *testing.T) {
	rec := &recorder{}
	r := New(WithDefaultStrategy(rec), WithDelay(time.Hour))
	doc := newDoc(t, "")
	install(t, r, doc)

	require.NoError(t, doc.Replace(0, 0, "a"))
	r.Force()

	calls := waitCalls(t, rec, 1)
	assert.Equal(t, dirty.NewInsert(0, "a"), calls[0].Region)
}

func TestReconciler_WaitIdle(t *testing.T) {
	rec := &recorder{}
	r := New(WithDefaultStrategy(rec), WithDelay(time.Hour))
	doc := newDoc(t, "")

	assert.ErrorIs(t, r.WaitIdle(context.Background()), ErrNotInstalled)

	install(t, r, doc)
	require.NoError(t, doc.Replace(0, 0, "abc"))
	require.NoError(t, doc.Replace(1, 1, "X"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.WaitIdle(ctx))

	assert.Len(t, rec.Calls(), 3)
	assert.Zero(t, r.QueueSize())
	assert.Equal(t, uint64(3), r.Stats().Reconciled)
}

// slowInitial finishes its initial pass after a pause.
type slowInitial struct {
	StrategyFunc
	pause time.Duration
	done  atomic.Bool
}

func (s *slowInitial) InitialReconcile(context.Context) error {
	time.Sleep(s.pause)
	s.done.Store(true)
	return nil
}

func TestReconciler_WaitIdleCoversInitialReconcile(t *testing.T) {
	s := &slowInitial{
		StrategyFunc: func(context.Context, dirty.Region, document.TypedRegion) error { return nil },
		pause:        50 * time.Millisecond,
	}
	r := New(WithDefaultStrategy(s))
	install(t, r, newDoc(t, "abc"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.WaitIdle(ctx))
	assert.True(t, s.done.Load(), "WaitIdle returned before the initial pass finished")
}

func TestReconciler_InitialReconcile(t *testing.T) {
	rec := &recorder{initFail: errors.New("initial")}
	var handled []error
	var mu sync.Mutex
	r := New(
		WithDefaultStrategy(rec),
		WithStrategy("other", rec),
		WithErrorHandler(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, err)
		}),
	)
	doc := newDoc(t, "abc")
	install(t, r, doc)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) == 1
	}, 2*time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.initial, "shared strategy runs once")
	assert.Equal(t, 1, rec.docSets)
}

func TestReconciler_Reinstall(t *testing.T) {
	rec := &recorder{}
	r := New(WithDefaultStrategy(rec), WithDelay(0))

	first := newDoc(t, "")
	require.NoError(t, r.Install(context.Background(), first))
	require.NoError(t, r.Uninstall())

	second := newDoc(t, "")
	install(t, r, second)
	require.NoError(t, second.Replace(0, 0, "z"))

	calls := waitCalls(t, rec, 1)
	assert.Equal(t, dirty.NewInsert(0, "z"), calls[0].Region)
	assert.Same(t, second, rec.Document())
}
