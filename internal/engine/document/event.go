package document

import "fmt"

// Event describes one replace operation on a document.
// Events are passed by value and never modified after they are raised.
type Event struct {
	// Document is the document that changed.
	Document *Document

	// Offset is where the replaced range starts.
	Offset int

	// Length is the length of the replaced range before the change.
	Length int

	// Text is the replacement text.
	Text string

	// Stamp is the modification stamp of the document after the change.
	// It is zero in DocumentAboutToChange.
	Stamp uint64
}

// End returns the end of the replaced range in the old text.
func (e Event) End() int {
	return e.Offset + e.Length
}

// IsInsert returns true if the event only inserted text.
func (e Event) IsInsert() bool {
	return e.Length == 0 && e.Text != ""
}

// IsRemove returns true if the event only removed text.
func (e Event) IsRemove() bool {
	return e.Length > 0 && e.Text == ""
}

// IsReplace returns true if the event removed text and inserted new text.
func (e Event) IsReplace() bool {
	return e.Length > 0 && e.Text != ""
}

// IsNoOp returns true if the event changed nothing.
func (e Event) IsNoOp() bool {
	return e.Length == 0 && e.Text == ""
}

// String returns a human-readable representation of the event.
func (e Event) String() string {
	text := e.Text
	if len(text) > 20 {
		text = text[:17] + "..."
	}
	switch {
	case e.IsInsert():
		return fmt.Sprintf("Insert(%d, %q)", e.Offset, text)
	case e.IsRemove():
		return fmt.Sprintf("Remove(%d, %d)", e.Offset, e.Length)
	default:
		return fmt.Sprintf("Replace(%d, %d, %q)", e.Offset, e.Length, text)
	}
}

// Listener receives document change notifications.
type Listener interface {
	// DocumentAboutToChange is called before the text is modified.
	DocumentAboutToChange(e Event)

	// DocumentChanged is called after the text and line index are updated.
	DocumentChanged(e Event)
}

// ListenerFuncs adapts functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	AboutToChange func(e Event)
	Changed       func(e Event)
}

// DocumentAboutToChange implements Listener.
func (f *ListenerFuncs) DocumentAboutToChange(e Event) {
	if f.AboutToChange != nil {
		f.AboutToChange(e)
	}
}

// DocumentChanged implements Listener.
func (f *ListenerFuncs) DocumentChanged(e Event) {
	if f.Changed != nil {
		f.Changed(e)
	}
}
