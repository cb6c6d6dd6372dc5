package document

import "errors"

// Errors returned by document operations.
var (
	// ErrBadLocation indicates an offset or length outside the document.
	ErrBadLocation = errors.New("bad location")

	// ErrReentrant indicates a listener tried to modify the document that is
	// notifying it.
	ErrReentrant = errors.New("document modified during change notification")
)
