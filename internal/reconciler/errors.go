package reconciler

import (
	"errors"
	"fmt"

	"github.com/dshills/reconcile/internal/reconciler/dirty"
)

// Errors returned by the reconciler.
var (
	// ErrAlreadyInstalled indicates Install was called on an installed reconciler.
	ErrAlreadyInstalled = errors.New("reconciler already installed")

	// ErrNotInstalled indicates Uninstall was called without Install.
	ErrNotInstalled = errors.New("reconciler not installed")

	// ErrNilDocument indicates Install was called with a nil document.
	ErrNilDocument = errors.New("nil document")

	// ErrStrategyPanic indicates a strategy panicked.
	ErrStrategyPanic = errors.New("strategy panicked")
)

// StrategyError records a failed strategy call.
type StrategyError struct {
	ContentType string
	Region      dirty.Region
	Err         error
}

// Error implements the error interface.
func (e *StrategyError) Error() string {
	return fmt.Sprintf("reconcile %s in %q: %v", e.Region, e.ContentType, e.Err)
}

// Unwrap returns the underlying error.
func (e *StrategyError) Unwrap() error {
	return e.Err
}
