package document

// Store holds the characters of a document.
// Offsets passed to a Store have already been validated by the Document.
type Store interface {
	Len() int
	Slice(start, end int) string
	Replace(offset, length int, text string)
	Set(text string)
}

// Gap sizing for GapStore.
const (
	minGap = 64
	maxGap = 64 * 1024
)

// GapStore is a gap buffer. Edits near the previous edit are cheap, which
// matches the typing pattern of an editor.
type GapStore struct {
	buf      []byte
	gapStart int
	gapEnd   int
}

// NewGapStore creates an empty gap buffer.
func NewGapStore() *GapStore {
	return &GapStore{buf: make([]byte, minGap), gapEnd: minGap}
}

func (s *GapStore) gapLen() int {
	return s.gapEnd - s.gapStart
}

// Len implements Store.
func (s *GapStore) Len() int {
	return len(s.buf) - s.gapLen()
}

// Slice implements Store.
func (s *GapStore) Slice(start, end int) string {
	switch {
	case end <= s.gapStart:
		return string(s.buf[start:end])
	case start >= s.gapStart:
		return string(s.buf[start+s.gapLen() : end+s.gapLen()])
	default:
		out := make([]byte, 0, end-start)
		out = append(out, s.buf[start:s.gapStart]...)
		out = append(out, s.buf[s.gapEnd:end+s.gapLen()]...)
		return string(out)
	}
}

// Replace implements Store.
func (s *GapStore) Replace(offset, length int, text string) {
	s.moveGap(offset)
	s.gapEnd += length
	if len(text) > s.gapLen() {
		s.grow(len(text))
	}
	copy(s.buf[s.gapStart:], text)
	s.gapStart += len(text)
}

// Set implements Store.
func (s *GapStore) Set(text string) {
	s.buf = make([]byte, len(text)+minGap)
	copy(s.buf, text)
	s.gapStart = len(text)
	s.gapEnd = len(s.buf)
}

// moveGap moves the gap so that it starts at offset.
func (s *GapStore) moveGap(offset int) {
	switch {
	case offset < s.gapStart:
		n := s.gapStart - offset
		copy(s.buf[s.gapEnd-n:s.gapEnd], s.buf[offset:s.gapStart])
		s.gapStart -= n
		s.gapEnd -= n
	case offset > s.gapStart:
		n := offset - s.gapStart
		copy(s.buf[s.gapStart:s.gapStart+n], s.buf[s.gapEnd:s.gapEnd+n])
		s.gapStart += n
		s.gapEnd += n
	}
}

// grow reallocates so the gap can hold at least need bytes.
func (s *GapStore) grow(need int) {
	content := s.Len()
	gap := need + min(max(content/2, minGap), maxGap)
	buf := make([]byte, content+gap)
	copy(buf, s.buf[:s.gapStart])
	tail := s.buf[s.gapEnd:]
	copy(buf[len(buf)-len(tail):], tail)
	s.gapEnd = len(buf) - len(tail)
	s.buf = buf
}

// StringStore keeps the text in a single immutable string and copies on
// every change. It is simple and makes Slice allocation-free.
type StringStore struct {
	text string
}

// Len implements Store.
func (s *StringStore) Len() int { return len(s.text) }

// Slice implements Store.
func (s *StringStore) Slice(start, end int) string { return s.text[start:end] }

// Replace implements Store.
func (s *StringStore) Replace(offset, length int, text string) {
	s.text = s.text[:offset] + text + s.text[offset+length:]
}

// Set implements Store.
func (s *StringStore) Set(text string) { s.text = text }
