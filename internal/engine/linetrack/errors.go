package linetrack

import (
	"errors"
	"fmt"
)

// Errors returned by tracker operations.
var (
	// ErrInvalidRange indicates an offset or length outside [0, Len()].
	ErrInvalidRange = errors.New("invalid range")

	// ErrBadLine indicates a line number outside [0, NumberOfLines()).
	ErrBadLine = errors.New("line out of range")

	// ErrInconsistentState indicates that a Replace does not match the
	// tracker's view of the document, usually because the caller skipped a
	// Set after a bulk change or reported the change before applying it.
	ErrInconsistentState = errors.New("line tracker out of sync with document")

	// ErrNoDelimiters indicates an empty delimiter set.
	ErrNoDelimiters = errors.New("no legal line delimiters")

	// ErrEmptyDelimiter indicates that a delimiter set contains "".
	ErrEmptyDelimiter = errors.New("empty line delimiter")
)

// BadLocationError reports an out-of-range argument to a tracker operation.
type BadLocationError struct {
	// Op is the operation that rejected the argument.
	Op string

	// Value is the rejected argument.
	Value int

	// Limit is the upper bound that was in effect.
	Limit int

	// Err is ErrInvalidRange or ErrBadLine.
	Err error
}

// Error implements the error interface.
func (e *BadLocationError) Error() string {
	return fmt.Sprintf("%s(%d): %v (limit %d)", e.Op, e.Value, e.Err, e.Limit)
}

// Unwrap returns the underlying sentinel.
func (e *BadLocationError) Unwrap() error {
	return e.Err
}

func badRange(op string, value, limit int) error {
	return &BadLocationError{Op: op, Value: value, Limit: limit, Err: ErrInvalidRange}
}

func badLine(op string, line, count int) error {
	return &BadLocationError{Op: op, Value: line, Limit: count, Err: ErrBadLine}
}
