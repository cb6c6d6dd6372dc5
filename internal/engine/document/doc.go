// Package document provides a mutable text document with an incrementally
// maintained line index, two-phase change notification and content-type
// partitioning.
//
// Every mutation goes through Replace or Set and produces an Event. Listeners
// see the event twice: DocumentAboutToChange before the text is modified and
// DocumentChanged after both the text and the line index have been updated.
// Notification is a direct call on the mutating goroutine; a listener must
// not modify the document it is being notified about (ErrReentrant).
//
// Basic usage:
//
//	doc, _ := document.New(document.WithContent("hello\nworld"))
//	doc.AddListener(&document.ListenerFuncs{
//	    Changed: func(e document.Event) { fmt.Println(e) },
//	})
//	doc.Replace(5, 1, " ")   // "hello world"
//	doc.NumberOfLines()      // 1
//
// # Thread Safety
//
// A document has a single writer. Reads (Get, line queries, partitions) may
// run concurrently with it from other goroutines, which is how background
// reconcilers inspect the text.
package document
