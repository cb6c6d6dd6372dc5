package reconciler

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/reconcile/internal/engine/document"
	"github.com/dshills/reconcile/internal/logging"
	"github.com/dshills/reconcile/internal/reconciler/dirty"
)

// Stats counts reconciler activity since creation.
type Stats struct {
	Enqueued      uint64 // Regions passed to the queue
	Merged        uint64 // Regions merged into the queue tail
	Processed     uint64 // Regions taken off the queue
	Reconciled    uint64 // Regions whose strategy calls have finished
	StrategyCalls uint64
	Errors        uint64 // Failed or panicking strategy calls
}

// Reconciler feeds document changes to strategies on a background goroutine.
type Reconciler struct {
	strategies map[string]Strategy
	fallback   Strategy
	delay      time.Duration
	logger     *logging.Logger
	onError    func(error)

	mu       sync.Mutex
	doc      *document.Document
	queue    *dirty.Queue
	listener *document.ListenerFuncs
	cancel   context.CancelFunc
	done     chan struct{}
	force    chan struct{}

	// busyMu makes taking a region off the queue and marking it in flight
	// one step for WaitIdle. The initial pass also counts as in flight.
	busyMu sync.Mutex
	busy   bool

	enqueued      atomic.Uint64
	merged        atomic.Uint64
	processed     atomic.Uint64
	reconciled    atomic.Uint64
	strategyCalls atomic.Uint64
	errors        atomic.Uint64
}

// New creates an uninstalled reconciler.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		strategies: make(map[string]Strategy),
		delay:      DefaultDelay,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("reconciler")
	return r
}

// Strategy returns the strategy for contentType, falling back to the
// default strategy. It returns nil when neither exists.
func (r *Reconciler) Strategy(contentType string) Strategy {
	if s, ok := r.strategies[contentType]; ok {
		return s
	}
	return r.fallback
}

// Install attaches the reconciler to doc and starts the consumer goroutine.
// The goroutine stops when ctx is done or Uninstall is called.
func (r *Reconciler) Install(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return ErrNilDocument
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.doc != nil {
		return ErrAlreadyInstalled
	}

	queue := dirty.NewQueue()
	listener := &document.ListenerFuncs{
		Changed: func(e document.Event) {
			for _, region := range Decompose(e) {
				r.enqueued.Add(1)
				if queue.Add(region) {
					r.merged.Add(1)
				}
			}
		},
	}

	for _, s := range r.distinctStrategies() {
		s.SetDocument(doc)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.doc = doc
	r.queue = queue
	r.listener = listener
	r.cancel = cancel
	r.done = make(chan struct{})
	r.force = make(chan struct{}, 1)

	doc.AddListener(listener)
	r.setBusy(true)
	go r.run(runCtx, doc, queue, r.force, r.done)

	r.logger.Info("installed on document %s", doc.ID())
	return nil
}

// Uninstall detaches the reconciler from its document. Pending regions are
// discarded and a blocked consumer is released. Uninstall returns after the
// consumer goroutine has stopped.
func (r *Reconciler) Uninstall() error {
	r.mu.Lock()
	if r.doc == nil {
		r.mu.Unlock()
		return ErrNotInstalled
	}

	doc, queue, done := r.doc, r.queue, r.done
	doc.RemoveListener(r.listener)
	queue.Close()
	r.cancel()

	r.doc = nil
	r.queue = nil
	r.listener = nil
	r.cancel = nil
	r.done = nil
	r.force = nil
	r.mu.Unlock()

	<-done

	for _, s := range r.distinctStrategies() {
		s.SetDocument(nil)
	}
	r.logger.Info("uninstalled from document %s", doc.ID())
	return nil
}

// IsInstalled reports whether the reconciler is attached to a document.
func (r *Reconciler) IsInstalled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc != nil
}

// QueueSize returns the number of pending dirty regions.
func (r *Reconciler) QueueSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queue == nil {
		return 0
	}
	return r.queue.Size()
}

// Force makes the consumer skip the rest of the current delay.
func (r *Reconciler) Force() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.force == nil {
		return
	}
	select {
	case r.force <- struct{}{}:
	default:
	}
}

// idlePoll is how often WaitIdle checks for outstanding regions.
const idlePoll = 5 * time.Millisecond

// WaitIdle skips the delay and blocks until every region queued so far has
// been reconciled. It returns ErrNotInstalled if the reconciler is detached
// before or while waiting.
func (r *Reconciler) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()

	for {
		r.mu.Lock()
		queue := r.queue
		r.mu.Unlock()
		if queue == nil {
			return ErrNotInstalled
		}

		r.busyMu.Lock()
		idle := queue.Size() == 0 && !r.busy
		r.busyMu.Unlock()
		if idle {
			return nil
		}
		r.Force()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stats returns a snapshot of the activity counters.
func (r *Reconciler) Stats() Stats {
	return Stats{
		Enqueued:      r.enqueued.Load(),
		Merged:        r.merged.Load(),
		Processed:     r.processed.Load(),
		Reconciled:    r.reconciled.Load(),
		StrategyCalls: r.strategyCalls.Load(),
		Errors:        r.errors.Load(),
	}
}

func (r *Reconciler) distinctStrategies() []Strategy {
	var out []Strategy
	add := func(s Strategy) {
		if s == nil {
			return
		}
		// StrategyFunc values cannot be compared
		if reflect.TypeOf(s).Comparable() && slices.Contains(out, s) {
			return
		}
		out = append(out, s)
	}
	add(r.fallback)
	for _, s := range r.strategies {
		add(s)
	}
	return out
}

// run is the consumer loop.
func (r *Reconciler) run(ctx context.Context, doc *document.Document, queue *dirty.Queue, force <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer r.setBusy(false)

	r.initialReconcile(ctx)
	r.setBusy(false)

	for {
		if err := queue.Wait(ctx); err != nil {
			r.logger.Debug("consumer stopped: %v", err)
			return
		}
		if !r.settle(ctx, queue, force) {
			return
		}
		r.drain(ctx, doc, queue)
	}
}

// settle waits until the queue has been quiet for the delay. It returns
// false if ctx is done first.
func (r *Reconciler) settle(ctx context.Context, queue *dirty.Queue, force <-chan struct{}) bool {
	if r.delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	for {
		stamp := queue.Stamp()
		select {
		case <-ctx.Done():
			return false
		case <-force:
			return true
		case <-timer.C:
			if queue.Stamp() == stamp {
				return true
			}
			timer.Reset(r.delay)
		}
	}
}

func (r *Reconciler) drain(ctx context.Context, doc *document.Document, queue *dirty.Queue) {
	for ctx.Err() == nil {
		r.busyMu.Lock()
		region, ok := queue.RemoveNext()
		r.busy = ok
		r.busyMu.Unlock()
		if !ok {
			return
		}
		r.processed.Add(1)
		r.reconcileRegion(ctx, doc, region)
		r.reconciled.Add(1)
		r.setBusy(false)
	}
}

func (r *Reconciler) setBusy(busy bool) {
	r.busyMu.Lock()
	r.busy = busy
	r.busyMu.Unlock()
}

// reconcileRegion calls the strategy of every partition region touches.
// Offsets are clamped to the current document, which may have changed
// since the region was queued.
func (r *Reconciler) reconcileRegion(ctx context.Context, doc *document.Document, region dirty.Region) {
	n := doc.Len()
	offset := min(max(region.Offset, 0), n)
	length := 0
	if region.Type == dirty.Insert {
		length = min(region.Length, n-offset)
	}

	for _, partition := range doc.Partitions(offset, length) {
		if ctx.Err() != nil {
			return
		}
		s := r.Strategy(partition.Type)
		if s == nil {
			r.logger.Debug("no strategy for %q", partition.Type)
			continue
		}
		r.strategyCalls.Add(1)
		if err := r.call(ctx, s, region, partition); err != nil {
			r.fail(&StrategyError{ContentType: partition.Type, Region: region, Err: err})
		}
	}
}

func (r *Reconciler) call(ctx context.Context, s Strategy, region dirty.Region, partition document.TypedRegion) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrStrategyPanic, p)
		}
	}()
	return s.Reconcile(ctx, region, partition)
}

func (r *Reconciler) initialReconcile(ctx context.Context) {
	for _, s := range r.distinctStrategies() {
		ir, ok := s.(InitialReconciler)
		if !ok {
			continue
		}
		err := func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%w: %v", ErrStrategyPanic, p)
				}
			}()
			return ir.InitialReconcile(ctx)
		}()
		if err != nil {
			r.fail(fmt.Errorf("initial reconcile: %w", err))
		}
	}
}

func (r *Reconciler) fail(err error) {
	r.errors.Add(1)
	r.logger.Error("%v", err)
	if r.onError != nil {
		r.onError(err)
	}
}
