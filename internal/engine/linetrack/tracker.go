package linetrack

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Line is one entry of the line index.
type Line struct {
	Offset    int    // Start offset of the line
	Length    int    // Length including the delimiter
	Delimiter string // Terminating delimiter, "" for the last line
}

// End returns the offset just past the line and its delimiter.
func (l Line) End() int {
	return l.Offset + l.Length
}

// ContentLength returns the length of the line without its delimiter.
func (l Line) ContentLength() int {
	return l.Length - len(l.Delimiter)
}

// Region is a contiguous range of text.
type Region struct {
	Offset int
	Length int
}

// End returns the offset just past the region.
func (r Region) End() int {
	return r.Offset + r.Length
}

// Source gives read access to document text.
// Replace uses it to look at the text around a change.
type Source interface {
	Len() int
	Slice(start, end int) string
}

// StringSource adapts a string to Source.
type StringSource string

// Len implements Source.
func (s StringSource) Len() int { return len(s) }

// Slice implements Source.
func (s StringSource) Slice(start, end int) string { return string(s[start:end]) }

// Tracker maintains the line index of a text.
// The zero value is not usable; create trackers with New.
type Tracker struct {
	finder Finder
	lines  []Line
	length int

	// Offsets stored for lines at stepAt and later lack step. The step
	// moves with the edit position, so a local edit touches only the
	// lines between it and the previous edit.
	stepAt int
	step   int
}

// New creates a tracker for an empty text using the given finder.
func New(finder Finder) *Tracker {
	if finder == nil {
		finder = DefaultFinder{}
	}
	t := &Tracker{finder: finder}
	t.Set("")
	return t
}

// NewDefault creates a tracker recognizing "\r", "\n" and "\r\n".
func NewDefault() *Tracker {
	return New(DefaultFinder{})
}

// NewConfigurable creates a tracker recognizing exactly the given delimiters.
func NewConfigurable(delimiters []string) (*Tracker, error) {
	f, err := NewConfigurableFinder(delimiters)
	if err != nil {
		return nil, err
	}
	return New(f), nil
}

// Set rebuilds the index from scratch for text.
func (t *Tracker) Set(text string) {
	t.lines = scanLines(t.finder, text, 0, 0, make([]Line, 0, 16))
	t.length = len(text)
	t.stepAt, t.step = 0, 0
}

// line returns entry i with its real offset.
func (t *Tracker) line(i int) Line {
	l := t.lines[i]
	if i >= t.stepAt {
		l.Offset += t.step
	}
	return l
}

// moveStep folds the pending step into the stored offsets between the old
// step position and to.
func (t *Tracker) moveStep(to int) {
	if t.step == 0 {
		t.stepAt = to
		return
	}
	for ; t.stepAt < to; t.stepAt++ {
		t.lines[t.stepAt].Offset += t.step
	}
	for ; t.stepAt > to; t.stepAt-- {
		t.lines[t.stepAt-1].Offset -= t.step
	}
}

// scanLines appends the lines of text starting at from. Offsets are shifted
// by base. The final line has no delimiter.
func scanLines(f Finder, text string, base, from int, out []Line) []Line {
	pos := from
	for {
		m, ok := f.Next(text, pos)
		if !ok {
			return append(out, Line{Offset: base + pos, Length: len(text) - pos})
		}
		out = append(out, Line{Offset: base + pos, Length: m.End() - pos, Delimiter: m.Delimiter})
		pos = m.End()
	}
}

// Replace updates the index after the document replaced [offset, offset+length)
// with text. src must already hold the new document content.
//
// Only lines whose delimiter decisions can see the changed range are
// rescanned. On error the index is left unchanged.
func (t *Tracker) Replace(src Source, offset, length int, text string) error {
	if offset < 0 || offset > t.length {
		return badRange("Replace", offset, t.length)
	}
	if length < 0 || length > t.length {
		return badRange("Replace", length, t.length)
	}
	if offset+length > t.length {
		return fmt.Errorf("Replace(%d, %d) past tracked length %d: %w", offset, length, t.length, ErrInconsistentState)
	}

	delta := len(text) - length
	newLen := t.length + delta
	if src == nil || src.Len() != newLen {
		return fmt.Errorf("Replace(%d, %d): document length does not match %d: %w", offset, length, newLen, ErrInconsistentState)
	}

	maxLen := t.finder.MaxLength()
	first := t.lineIndex(max(0, offset-maxLen+1))
	for first > 0 {
		prev := t.line(first - 1)
		delimStart := prev.End() - len(prev.Delimiter)
		if delimStart+maxLen <= offset {
			break
		}
		first--
	}

	start := t.line(first).Offset
	last := t.lineIndex(offset + length)
	w := window{src: src, start: start, hi: min(newLen, t.line(last).End()+delta+maxLen)}
	w.fill()

	insEnd := offset + len(text)
	fresh := make([]Line, 0, 4)
	resume := len(t.lines)
	pos := start

scan:
	for {
		m, ok := t.finder.Next(w.text, pos-start)
		certain := w.hi == newLen || (ok && m.Offset+start+maxLen <= w.hi)
		if !certain {
			w.grow(newLen)
			continue
		}
		if !ok {
			fresh = append(fresh, Line{Offset: pos, Length: newLen - pos})
			break
		}

		end := m.End() + start
		fresh = append(fresh, Line{Offset: pos, Length: end - pos, Delimiter: m.Delimiter})
		pos = end

		if pos >= insEnd {
			if j, found := t.lineStartingAt(pos-delta, first); found {
				resume = j
				break scan
			}
		}
	}

	// Lines from first on become relative to the step, and the kept tail
	// shifts by delta through the step alone.
	t.moveStep(first)
	step := t.step + delta
	for i := range fresh {
		fresh[i].Offset -= step
	}
	t.lines = slices.Replace(t.lines, first, resume, fresh...)
	t.step = step
	t.length = newLen
	return nil
}

// window is a growing slice of the new text starting at a line boundary.
type window struct {
	src   Source
	start int
	hi    int
	text  string
}

func (w *window) fill() {
	w.text = w.src.Slice(w.start, w.hi)
}

func (w *window) grow(limit int) {
	w.hi = min(limit, w.hi+max(w.hi-w.start, 256))
	w.fill()
}

// lineIndex returns the line containing offset. Offsets inside a delimiter
// belong to the line the delimiter terminates.
func (t *Tracker) lineIndex(offset int) int {
	i := sort.Search(len(t.lines), func(i int) bool {
		return t.line(i).Offset > offset
	})
	return max(i-1, 0)
}

// lineStartingAt finds the line, at or after index from, whose start is offset.
func (t *Tracker) lineStartingAt(offset, from int) (int, bool) {
	n := len(t.lines) - from
	i := sort.Search(n, func(i int) bool {
		return t.line(from+i).Offset >= offset
	})
	if i < n && t.line(from+i).Offset == offset {
		return from + i, true
	}
	return 0, false
}

// Len returns the length of the tracked text.
func (t *Tracker) Len() int {
	return t.length
}

// NumberOfLines returns the number of lines. It is always at least 1.
func (t *Tracker) NumberOfLines() int {
	return len(t.lines)
}

// Line returns the index entry for line.
func (t *Tracker) Line(line int) (Line, error) {
	if line < 0 || line >= len(t.lines) {
		return Line{}, badLine("Line", line, len(t.lines))
	}
	return t.line(line), nil
}

// LineOffset returns the start offset of line.
func (t *Tracker) LineOffset(line int) (int, error) {
	l, err := t.Line(line)
	if err != nil {
		return 0, err
	}
	return l.Offset, nil
}

// LineLength returns the length of line including its delimiter.
func (t *Tracker) LineLength(line int) (int, error) {
	l, err := t.Line(line)
	if err != nil {
		return 0, err
	}
	return l.Length, nil
}

// LineDelimiter returns the delimiter of line, or "" for the last line.
func (t *Tracker) LineDelimiter(line int) (string, error) {
	l, err := t.Line(line)
	if err != nil {
		return "", err
	}
	return l.Delimiter, nil
}

// LineInformation returns the region of line without its delimiter.
func (t *Tracker) LineInformation(line int) (Region, error) {
	l, err := t.Line(line)
	if err != nil {
		return Region{}, err
	}
	return Region{Offset: l.Offset, Length: l.ContentLength()}, nil
}

// LineOfOffset returns the line containing offset.
// Len() is a valid offset and maps to the last line.
func (t *Tracker) LineOfOffset(offset int) (int, error) {
	if offset < 0 || offset > t.length {
		return 0, badRange("LineOfOffset", offset, t.length)
	}
	return t.lineIndex(offset), nil
}

// LineInformationOfOffset returns the region of the line containing offset.
func (t *Tracker) LineInformationOfOffset(offset int) (Region, error) {
	line, err := t.LineOfOffset(offset)
	if err != nil {
		return Region{}, err
	}
	return t.LineInformation(line)
}

// NumberOfLinesIn returns how many lines the range [offset, offset+length]
// touches.
func (t *Tracker) NumberOfLinesIn(offset, length int) (int, error) {
	if offset < 0 || offset > t.length {
		return 0, badRange("NumberOfLinesIn", offset, t.length)
	}
	if length < 0 || offset+length > t.length {
		return 0, badRange("NumberOfLinesIn", length, t.length-offset)
	}
	if length == 0 {
		return 1, nil
	}
	return t.lineIndex(offset+length) - t.lineIndex(offset) + 1, nil
}

// ComputeNumberOfLines returns the number of delimiters in text.
func (t *Tracker) ComputeNumberOfLines(text string) int {
	count := 0
	pos := 0
	for {
		m, ok := t.finder.Next(text, pos)
		if !ok {
			return count
		}
		count++
		pos = m.End()
	}
}

// LegalLineDelimiters returns a copy of the delimiters this tracker recognizes.
func (t *Tracker) LegalLineDelimiters() []string {
	return slices.Clone(t.finder.Delimiters())
}

// Lines returns a copy of the index.
func (t *Tracker) Lines() []Line {
	out := slices.Clone(t.lines)
	for i := t.stepAt; i < len(out); i++ {
		out[i].Offset += t.step
	}
	return out
}

// String returns a compact description of the index, for debugging.
func (t *Tracker) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := range t.lines {
		l := t.line(i)
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%d:%d", l.Offset, l.Length)
	}
	sb.WriteString("]")
	return sb.String()
}
