package dirty

import "fmt"

// Type is the kind of change a region records.
type Type uint8

const (
	// Insert marks text that was added.
	Insert Type = iota + 1
	// Remove marks text that was deleted.
	Remove
)

// String returns the name of the type.
func (t Type) String() string {
	switch t {
	case Insert:
		return "INSERT"
	case Remove:
		return "REMOVE"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Region is a range of the document that changed and needs reconciling.
type Region struct {
	Type   Type
	Offset int
	Length int

	// Text is the inserted text. It is empty for REMOVE regions.
	Text string
}

// NewInsert returns an INSERT region for text inserted at offset.
func NewInsert(offset int, text string) Region {
	return Region{Type: Insert, Offset: offset, Length: len(text), Text: text}
}

// NewRemove returns a REMOVE region for length bytes deleted at offset.
func NewRemove(offset, length int) Region {
	return Region{Type: Remove, Offset: offset, Length: length}
}

// End returns the offset just past the region.
func (r Region) End() int {
	return r.Offset + r.Length
}

// MergeWith extends r to cover other and appends other's text.
func (r *Region) MergeWith(other Region) {
	start := min(r.Offset, other.Offset)
	end := max(r.End(), other.End())
	r.Offset = start
	r.Length = end - start
	r.Text += other.Text
}

// adjacent reports whether next continues the edit recorded by r.
func (r Region) adjacent(next Region) bool {
	if r.Type != next.Type {
		return false
	}
	switch r.Type {
	case Insert:
		return r.End() == next.Offset
	case Remove:
		return next.End() == r.Offset
	default:
		return false
	}
}

// String returns a compact description like INSERT(5, 2).
func (r Region) String() string {
	return fmt.Sprintf("%s(%d, %d)", r.Type, r.Offset, r.Length)
}
