package document

import "github.com/dshills/reconcile/internal/engine/linetrack"

type config struct {
	content        string
	delimiters     []string
	delimitersSet  bool
	finder         linetrack.Finder
	store          Store
	partitioner    Partitioner
	onTrackerError func(error)
}

// Option configures a Document.
type Option func(*config)

// WithContent sets the initial text.
func WithContent(text string) Option {
	return func(c *config) {
		c.content = text
	}
}

// WithDelimiters restricts line delimiters to the given set, which must
// not be empty. Ignored when WithFinder is also given.
func WithDelimiters(delims ...string) Option {
	return func(c *config) {
		c.delimiters = append([]string(nil), delims...)
		c.delimitersSet = true
	}
}

// WithFinder sets the delimiter finder used by the line index.
func WithFinder(f linetrack.Finder) Option {
	return func(c *config) {
		c.finder = f
	}
}

// WithStore sets the text store. The default is a GapStore.
func WithStore(s Store) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithPartitioner sets the partitioner. The default assigns
// DefaultContentType to the whole document.
func WithPartitioner(p Partitioner) Option {
	return func(c *config) {
		c.partitioner = p
	}
}

// WithTrackerErrorHandler sets a callback for line index failures.
// The document recovers by rebuilding the index; the callback only reports.
func WithTrackerErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.onTrackerError = fn
	}
}
