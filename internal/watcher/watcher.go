// Package watcher reports changes to individual files on disk.
//
// Files are watched through their parent directory so that editors which
// save by writing a temporary file and renaming it over the original keep
// producing events. A Debouncer coalesces bursts of events for the same
// file into one.
package watcher

import (
	"errors"
	"strings"
	"time"
)

// Errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("file is already being watched")
	ErrNotWatching     = errors.New("file is not being watched")
	ErrPathNotExist    = errors.New("path does not exist")
	ErrIsDirectory     = errors.New("path is a directory")
)

// Op is a set of file operations.
type Op uint32

const (
	// OpCreate indicates the file was created, including by rename.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file was written.
	OpWrite
	// OpRemove indicates the file was removed.
	OpRemove
	// OpRename indicates the file was renamed away.
	OpRename
	// OpChmod indicates the file's attributes changed.
	OpChmod
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String returns the operation names joined by "|".
func (op Op) String() string {
	var names []string
	for _, n := range opNames {
		if op.Has(n.op) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(names, "|")
}

// Has returns true if op includes every bit of o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Changed reports whether the operation may have altered file content.
func (op Op) Changed() bool {
	return op&(OpCreate|OpWrite) != 0
}

// Event is a change to a watched file.
type Event struct {
	// Path is the absolute path of the file.
	Path string

	// Op holds the operations observed, combined when debounced.
	Op Op

	// Timestamp is when the last operation was observed.
	Timestamp time.Time
}

// Stats describes watcher activity.
type Stats struct {
	WatchedFiles  int
	PendingEvents int
	TotalEvents   int64
	Errors        int64
	LastError     error
}

// Source delivers file events.
type Source interface {
	// Events returns the event channel. It is closed by Close.
	Events() <-chan Event

	// Errors returns the error channel. It is closed by Close.
	Errors() <-chan error

	// Close stops delivery and releases resources.
	Close() error
}
