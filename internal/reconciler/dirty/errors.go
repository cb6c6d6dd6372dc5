package dirty

import "errors"

// ErrClosed is returned by Wait after the queue has been closed.
var ErrClosed = errors.New("dirty region queue closed")
