// Package textdiff turns the difference between two texts into a sequence
// of replace edits.
//
// It is used when a file changes on disk: instead of resetting the whole
// document, the new content is diffed against the old and only the changed
// ranges are replaced, so listeners see small, local events.
package textdiff

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Edit replaces Length bytes at Offset with Text.
type Edit struct {
	Offset int
	Length int
	Text   string
}

// String returns a compact form like "{4,2,"ab"}".
func (e Edit) String() string {
	return fmt.Sprintf("{%d,%d,%q}", e.Offset, e.Length, e.Text)
}

// Replacer is the document surface Apply needs.
type Replacer interface {
	Replace(offset, length int, text string) error
}

// DefaultTimeout bounds the time spent looking for a minimal diff. When it
// runs out the diff is still correct, only coarser.
const DefaultTimeout = time.Second

// Edits returns the edits that turn oldText into newText. Each edit's offset is
// relative to the text produced by the edits before it, so they must be
// applied in order. Identical texts yield no edits.
//
// Offsets are byte offsets. The diff itself works on runes, so when either
// text is not valid UTF-8 Edits falls back to a single edit covering
// everything between the common prefix and suffix.
func Edits(oldText, newText string) []Edit {
	if oldText == newText {
		return nil
	}
	if !utf8.ValidString(oldText) || !utf8.ValidString(newText) {
		return []Edit{spanEdit(oldText, newText)}
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = DefaultTimeout
	diffs := dmp.DiffMain(oldText, newText, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var edits []Edit
	pos := 0
	var pending *Edit

	flush := func() {
		if pending != nil {
			edits = append(edits, *pending)
			pos += len(pending.Text)
			pending = nil
		}
	}

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			pos += len(d.Text)
		case diffmatchpatch.DiffDelete:
			if pending == nil {
				pending = &Edit{Offset: pos}
			}
			pending.Length += len(d.Text)
		case diffmatchpatch.DiffInsert:
			if pending == nil {
				pending = &Edit{Offset: pos}
			}
			pending.Text += d.Text
		}
	}
	flush()

	return edits
}

// spanEdit replaces the differing middle of oldText with that of newText.
func spanEdit(oldText, newText string) Edit {
	prefix := 0
	for prefix < len(oldText) && prefix < len(newText) && oldText[prefix] == newText[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(oldText)-prefix && suffix < len(newText)-prefix &&
		oldText[len(oldText)-1-suffix] == newText[len(newText)-1-suffix] {
		suffix++
	}
	return Edit{
		Offset: prefix,
		Length: len(oldText) - prefix - suffix,
		Text:   newText[prefix : len(newText)-suffix],
	}
}

// Apply replays edits on doc in order. It stops at the first failure.
func Apply(doc Replacer, edits []Edit) error {
	for i, e := range edits {
		if err := doc.Replace(e.Offset, e.Length, e.Text); err != nil {
			return fmt.Errorf("edit %d %v: %w", i, e, err)
		}
	}
	return nil
}

// ApplyString applies edits to s. It is the string counterpart of Apply.
func ApplyString(s string, edits []Edit) (string, error) {
	for i, e := range edits {
		if e.Offset < 0 || e.Length < 0 || e.Offset+e.Length > len(s) {
			return "", fmt.Errorf("edit %d %v: out of range for length %d", i, e, len(s))
		}
		s = s[:e.Offset] + e.Text + s[e.Offset+e.Length:]
	}
	return s, nil
}
