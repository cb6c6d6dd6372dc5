// Package summary provides a reconciling strategy that tallies what was
// reconciled per content type. It is the strategy used when no script is
// configured.
package summary

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dshills/reconcile/internal/engine/document"
	"github.com/dshills/reconcile/internal/reconciler/dirty"
)

// Counts is the tally for one content type.
type Counts struct {
	ContentType string

	// Partitions and Bytes describe the document as seen by the initial pass.
	Partitions int
	Bytes      int

	Inserts       int
	Removes       int
	BytesInserted int
	BytesRemoved  int

	// LinesTouched counts, for each INSERT, the lines spanned by the part
	// that fell into this content type.
	LinesTouched int
}

// Strategy tallies reconciled regions. It is safe to read the tallies while
// the reconciler is running.
type Strategy struct {
	mu     sync.Mutex
	doc    *document.Document
	counts map[string]*Counts
}

// New creates an empty tally.
func New() *Strategy {
	return &Strategy{counts: make(map[string]*Counts)}
}

// SetDocument implements reconciler.Strategy.
func (s *Strategy) SetDocument(doc *document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
}

// Reconcile implements reconciler.Strategy.
func (s *Strategy) Reconcile(_ context.Context, region dirty.Region, partition document.TypedRegion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(partition.Type)
	switch region.Type {
	case dirty.Insert:
		c.Inserts++
		c.BytesInserted += partition.Length
		if s.doc != nil {
			if n, err := s.doc.NumberOfLinesIn(partition.Offset, partition.Length); err == nil {
				c.LinesTouched += n
			}
		}
	case dirty.Remove:
		c.Removes++
		c.BytesRemoved += region.Length
	}
	return nil
}

// InitialReconcile implements reconciler.InitialReconciler. It records the
// partition layout of the document at install time.
func (s *Strategy) InitialReconcile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil
	}
	for _, p := range s.doc.Partitions(0, s.doc.Len()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := s.get(p.Type)
		c.Partitions++
		c.Bytes += p.Length
	}
	return nil
}

// get must be called with mu held.
func (s *Strategy) get(contentType string) *Counts {
	c, ok := s.counts[contentType]
	if !ok {
		c = &Counts{ContentType: contentType}
		s.counts[contentType] = c
	}
	return c
}

// Counts returns a copy of the tallies ordered by content type.
func (s *Strategy) Counts() []Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Counts, 0, len(s.counts))
	for _, ct := range slices.Sorted(maps.Keys(s.counts)) {
		out = append(out, *s.counts[ct])
	}
	return out
}

// Reset clears the tallies.
func (s *Strategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.counts)
}
