package lua

import "errors"

// Errors for Lua strategies.
var (
	// ErrClosed is returned when using a closed strategy.
	ErrClosed = errors.New("lua strategy is closed")

	// ErrNoReconcileFunc indicates the script does not define reconcile.
	ErrNoReconcileFunc = errors.New("script does not define a reconcile function")

	// ErrNoDocument is raised inside Lua when doc is used before install.
	ErrNoDocument = errors.New("no document attached")

	// ErrBadResult indicates reconcile returned something other than a list
	// of annotations.
	ErrBadResult = errors.New("reconcile must return a list of annotations")
)
