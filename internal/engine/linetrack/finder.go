package linetrack

import (
	"slices"
	"strings"
)

// Match is a delimiter occurrence found by a Finder.
type Match struct {
	Offset    int    // Position of the first delimiter byte
	Delimiter string // The delimiter that matched
}

// End returns the position just past the delimiter.
func (m Match) End() int {
	return m.Offset + len(m.Delimiter)
}

// Finder locates line delimiters.
//
// Next returns the first delimiter occurrence starting at or after from.
// When several delimiters start at the same position, the longest wins.
type Finder interface {
	Next(text string, from int) (Match, bool)

	// Delimiters returns the legal delimiters. Callers must not modify it.
	Delimiters() []string

	// MaxLength returns the length of the longest legal delimiter.
	MaxLength() int
}

var defaultDelimiters = []string{"\r", "\n", "\r\n"}

// DefaultFinder recognizes the fixed delimiter set "\r", "\n" and "\r\n".
type DefaultFinder struct{}

// Next implements Finder.
func (DefaultFinder) Next(text string, from int) (Match, bool) {
	if from >= len(text) {
		return Match{}, false
	}
	i := strings.IndexAny(text[from:], "\r\n")
	if i < 0 {
		return Match{}, false
	}
	i += from
	if text[i] == '\n' {
		return Match{Offset: i, Delimiter: "\n"}, true
	}
	if i+1 < len(text) && text[i+1] == '\n' {
		return Match{Offset: i, Delimiter: "\r\n"}, true
	}
	return Match{Offset: i, Delimiter: "\r"}, true
}

// Delimiters implements Finder.
func (DefaultFinder) Delimiters() []string {
	return defaultDelimiters
}

// MaxLength implements Finder.
func (DefaultFinder) MaxLength() int {
	return 2
}

// ConfigurableFinder recognizes a fixed, caller-supplied set of delimiters.
type ConfigurableFinder struct {
	delimiters []string // configured order, deduplicated
	byLength   []string // longest first
	first      [256]bool
	maxLen     int
}

// NewConfigurableFinder creates a finder for the given delimiters.
// The slice is copied; later changes to it have no effect.
func NewConfigurableFinder(delimiters []string) (*ConfigurableFinder, error) {
	if len(delimiters) == 0 {
		return nil, ErrNoDelimiters
	}

	f := &ConfigurableFinder{}
	for _, d := range delimiters {
		if d == "" {
			return nil, ErrEmptyDelimiter
		}
		if slices.Contains(f.delimiters, d) {
			continue
		}
		f.delimiters = append(f.delimiters, d)
		f.first[d[0]] = true
		f.maxLen = max(f.maxLen, len(d))
	}

	f.byLength = slices.Clone(f.delimiters)
	slices.SortStableFunc(f.byLength, func(a, b string) int {
		return len(b) - len(a)
	})

	return f, nil
}

// Next implements Finder.
func (f *ConfigurableFinder) Next(text string, from int) (Match, bool) {
	for i := max(from, 0); i < len(text); i++ {
		if !f.first[text[i]] {
			continue
		}
		rest := text[i:]
		for _, d := range f.byLength {
			if strings.HasPrefix(rest, d) {
				return Match{Offset: i, Delimiter: d}, true
			}
		}
	}
	return Match{}, false
}

// Delimiters implements Finder.
func (f *ConfigurableFinder) Delimiters() []string {
	return f.delimiters
}

// MaxLength implements Finder.
func (f *ConfigurableFinder) MaxLength() int {
	return f.maxLen
}
