// Package linetrack maintains an incrementally updated index of line
// boundaries over a mutable text.
//
// A Tracker records, for every line, its start offset, its length and the
// delimiter that terminates it. After the initial Set, the index is kept in
// sync by Replace, which rescans only the lines whose delimiter decisions can
// observe the changed range and splices the result into the index. Lines
// before the change are untouched; lines after it are shifted.
//
// Delimiter recognition is pluggable through the Finder interface:
//
//   - DefaultFinder recognizes "\r", "\n" and "\r\n"
//   - ConfigurableFinder recognizes an arbitrary, fixed set of delimiters
//
// Both finders apply the same precedence rule: when several delimiters start
// at the same position the longest one wins, so "\r\n" is never split into
// two line breaks.
//
// Basic usage:
//
//	t := linetrack.NewDefault()
//	t.Set("a\nbb\nccc")
//
//	t.NumberOfLines()    // 3
//	t.LineOffset(1)      // 2, nil
//	t.LineOfOffset(6)    // 2, nil
//
//	// After the document text has changed, tell the tracker what happened.
//	text := "a\nXbb\nccc"
//	err := t.Replace(linetrack.StringSource(text), 2, 0, "X")
//
// # Thread Safety
//
// A Tracker is not synchronized. It belongs to a single document, which is
// responsible for serializing access to it.
package linetrack
