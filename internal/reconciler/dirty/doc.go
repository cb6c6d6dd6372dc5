// Package dirty provides dirty regions and the queue that hands them from the
// goroutine editing a document to the goroutine reconciling it.
//
// A Region records one INSERT or REMOVE. The Queue is FIFO, but Add first
// tries to merge the new region into the current tail so that a burst of
// typing or backspacing becomes a single region:
//
//	INSERT(5, 1) + INSERT(6, 1) = INSERT(5, 2)
//	REMOVE(4, 2) + REMOVE(2, 2) = REMOVE(2, 4)
//
// Merging never reorders regions. The Queue is safe for concurrent use and is
// the only synchronization point between producer and consumer.
package dirty
