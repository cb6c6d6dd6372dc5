// Package reconciler drives background reconciliation of a document.
//
// A Reconciler listens to a document, turns every change into dirty regions,
// and hands them through a dirty.Queue to a consumer goroutine. The consumer
// waits until edits have settled for the configured delay, then drains the
// queue in order and calls the Strategy registered for the content type of
// each partition the region touches.
//
// Changes are decomposed as follows:
//
//	insert  -> INSERT(offset, len(text))
//	remove  -> REMOVE(offset, length)
//	replace -> REMOVE(offset, length), INSERT(offset, len(text))
//
// Strategy errors and panics are logged and reported to the error handler.
// They never stop the consumer and are not retried.
//
// Basic usage:
//
//	r := reconciler.New(
//	    reconciler.WithDefaultStrategy(myStrategy),
//	    reconciler.WithDelay(500*time.Millisecond),
//	)
//	if err := r.Install(ctx, doc); err != nil {
//	    return err
//	}
//	defer r.Uninstall()
package reconciler
