package document

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/reconcile/internal/engine/linetrack"
)

// Re-export line tracker types used in the document API.
type (
	// Region is a contiguous range of text.
	Region = linetrack.Region

	// Line is an entry of the line index.
	Line = linetrack.Line
)

// Document is a mutable text with a line index and change notification.
type Document struct {
	mu      sync.RWMutex
	id      uuid.UUID
	store   Store
	tracker *linetrack.Tracker
	stamp   uint64

	partitioner Partitioner

	lmu       sync.Mutex
	listeners []Listener
	notifying atomic.Int32

	onTrackerError func(error)
}

// New creates a document with the given options.
func New(opts ...Option) (*Document, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	finder := cfg.finder
	if finder == nil && cfg.delimitersSet {
		f, err := linetrack.NewConfigurableFinder(cfg.delimiters)
		if err != nil {
			return nil, fmt.Errorf("document delimiters: %w", err)
		}
		finder = f
	}
	if finder == nil {
		finder = linetrack.DefaultFinder{}
	}

	d := &Document{
		id:             uuid.New(),
		store:          cfg.store,
		tracker:        linetrack.New(finder),
		partitioner:    cfg.partitioner,
		onTrackerError: cfg.onTrackerError,
	}
	if d.store == nil {
		d.store = NewGapStore()
	}
	if d.partitioner == nil {
		d.partitioner = NewSinglePartitioner(DefaultContentType)
	}

	d.store.Set(cfg.content)
	d.tracker.Set(cfg.content)
	d.partitioner.Connect(d)

	return d, nil
}

// ID returns the unique identifier of the document.
func (d *Document) ID() uuid.UUID {
	return d.id
}

// Stamp returns the modification stamp. It increases with every change.
func (d *Document) Stamp() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stamp
}

// Len returns the length of the document.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Len()
}

// Get returns the full text.
func (d *Document) Get() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Slice(0, d.store.Len())
}

// GetRange returns the text in [offset, offset+length).
func (d *Document) GetRange(offset, length int) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.checkRange(offset, length); err != nil {
		return "", err
	}
	return d.store.Slice(offset, offset+length), nil
}

func (d *Document) checkRange(offset, length int) error {
	n := d.store.Len()
	if offset < 0 || length < 0 || offset+length > n {
		return fmt.Errorf("range [%d, %d) in document of length %d: %w", offset, offset+length, n, ErrBadLocation)
	}
	return nil
}

// Replace substitutes text for [offset, offset+length).
//
// Listeners are notified before and after the change. The line index and
// the partitioner are up to date by the time DocumentChanged runs.
func (d *Document) Replace(offset, length int, text string) error {
	if d.notifying.Load() > 0 {
		return ErrReentrant
	}

	d.mu.RLock()
	err := d.checkRange(offset, length)
	d.mu.RUnlock()
	if err != nil {
		return err
	}

	e := Event{Document: d, Offset: offset, Length: length, Text: text}
	d.fireAboutToChange(e)

	d.mu.Lock()
	d.store.Replace(offset, length, text)
	trackErr := d.tracker.Replace(d.store, offset, length, text)
	if trackErr != nil {
		d.tracker.Set(d.store.Slice(0, d.store.Len()))
	}
	d.stamp++
	e.Stamp = d.stamp
	d.mu.Unlock()

	if trackErr != nil && d.onTrackerError != nil {
		d.onTrackerError(trackErr)
	}

	d.partitioner.DocumentChanged(e)
	d.fireChanged(e)
	return nil
}

// Set replaces the whole content and rebuilds the line index.
func (d *Document) Set(text string) error {
	if d.notifying.Load() > 0 {
		return ErrReentrant
	}

	e := Event{Document: d, Offset: 0, Length: d.Len(), Text: text}
	d.fireAboutToChange(e)

	d.mu.Lock()
	d.store.Set(text)
	d.tracker.Set(text)
	d.stamp++
	e.Stamp = d.stamp
	d.mu.Unlock()

	d.partitioner.DocumentChanged(e)
	d.fireChanged(e)
	return nil
}

// AddListener registers l. Adding the same listener twice has no effect.
func (d *Document) AddListener(l Listener) {
	if l == nil {
		return
	}
	d.lmu.Lock()
	defer d.lmu.Unlock()
	if !slices.Contains(d.listeners, l) {
		d.listeners = append(d.listeners, l)
	}
}

// RemoveListener unregisters l.
func (d *Document) RemoveListener(l Listener) {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	if i := slices.Index(d.listeners, l); i >= 0 {
		d.listeners = slices.Delete(d.listeners, i, i+1)
	}
}

// ListenerCount returns the number of registered listeners.
func (d *Document) ListenerCount() int {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	return len(d.listeners)
}

func (d *Document) snapshotListeners() []Listener {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	return slices.Clone(d.listeners)
}

func (d *Document) fireAboutToChange(e Event) {
	d.notifying.Add(1)
	defer d.notifying.Add(-1)
	for _, l := range d.snapshotListeners() {
		l.DocumentAboutToChange(e)
	}
}

func (d *Document) fireChanged(e Event) {
	d.notifying.Add(1)
	defer d.notifying.Add(-1)
	for _, l := range d.snapshotListeners() {
		l.DocumentChanged(e)
	}
}

// Line queries

// NumberOfLines returns the number of lines.
func (d *Document) NumberOfLines() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracker.NumberOfLines()
}

// LineOffset returns the start offset of line.
func (d *Document) LineOffset(line int) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracker.LineOffset(line)
}

// LineLength returns the length of line including its delimiter.
func (d *Document) LineLength(line int) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracker.LineLength(line)
}

// LineDelimiter returns the delimiter of line.
func (d *Document) LineDelimiter(line int) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracker.LineDelimiter(line)
}

// LineInformation returns the region of line without its delimiter.
func (d *Document) LineInformation(line int) (Region, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracker.LineInformation(line)
}

// LineOfOffset returns the line containing offset.
func (d *Document) LineOfOffset(offset int) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracker.LineOfOffset(offset)
}

// LineInformationOfOffset returns the region of the line containing offset.
func (d *Document) LineInformationOfOffset(offset int) (Region, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracker.LineInformationOfOffset(offset)
}

// NumberOfLinesIn returns how many lines [offset, offset+length] touches.
func (d *Document) NumberOfLinesIn(offset, length int) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracker.NumberOfLinesIn(offset, length)
}

// LineText returns the text of line without its delimiter.
func (d *Document) LineText(line int) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	info, err := d.tracker.LineInformation(line)
	if err != nil {
		return "", err
	}
	return d.store.Slice(info.Offset, info.End()), nil
}

// LegalLineDelimiters returns the delimiters the document recognizes.
func (d *Document) LegalLineDelimiters() []string {
	return d.tracker.LegalLineDelimiters()
}

// Partitioning

// Partitioner returns the partitioner connected to the document.
func (d *Document) Partitioner() Partitioner {
	return d.partitioner
}

// ContentType returns the content type at offset.
func (d *Document) ContentType(offset int) string {
	return d.partitioner.ContentType(offset)
}

// Partitions returns the typed regions covering [offset, offset+length],
// clipped to that range.
func (d *Document) Partitions(offset, length int) []TypedRegion {
	return d.partitioner.Partitions(offset, length)
}
