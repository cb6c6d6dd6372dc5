package app

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/reconcile/internal/engine/textdiff"
	"github.com/dshills/reconcile/internal/watcher"
)

// watch syncs the document with the file on disk until ctx is done. Each
// settled change is diffed against the document and applied as edits.
func (app *Application) watch(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher()
	if err != nil {
		return &ComponentError{Component: "watcher", Err: err}
	}
	if err := fw.Watch(app.opts.File); err != nil {
		_ = fw.Close()
		return &OperationError{Op: "watch", Target: app.opts.File, Err: err}
	}
	source := watcher.NewDebouncer(fw, app.cfg.Watch.Debounce.Std())

	app.logger.Info("watching %s", app.opts.File)
	if app.onWatch != nil {
		app.onWatch()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return source.Close()
	})

	g.Go(func() error {
		for event := range source.Events() {
			app.syncFile(event)
		}
		return nil
	})

	g.Go(func() error {
		for err := range source.Errors() {
			app.metrics.RecordWatchError()
			app.logger.Warn("watcher: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return &OperationError{Op: "watch", Target: app.opts.File, Err: err}
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// syncFile brings the document in line with the file after event.
func (app *Application) syncFile(event watcher.Event) {
	if !event.Op.Changed() {
		if event.Op&(watcher.OpRemove|watcher.OpRename) != 0 {
			app.logger.Info("%s went away (%v), waiting for it to return", event.Path, event.Op)
		}
		return
	}

	data, err := os.ReadFile(event.Path)
	if err != nil {
		// Removed again before we got to it
		if os.IsNotExist(err) {
			return
		}
		app.metrics.RecordWatchError()
		app.logger.Warn("reading %s: %v", event.Path, err)
		return
	}

	text := string(data)
	edits := textdiff.Edits(app.doc.Get(), text)
	if len(edits) == 0 {
		return
	}
	if err := app.applySync(text, edits); err != nil {
		app.metrics.RecordWatchError()
		app.logger.Error("syncing %s: %v", event.Path, err)
		return
	}
	app.metrics.RecordFileChange()
	app.logger.Debug("synced %s: %d edits", event.Path, len(edits))
}

// applySync applies edits, which should turn the document into text. If an
// edit fails part way the document is reset to text so it never stays half
// synced.
func (app *Application) applySync(text string, edits []textdiff.Edit) error {
	err := textdiff.Apply(app.doc, edits)
	if err == nil {
		app.metrics.RecordEdits(len(edits))
		return nil
	}
	app.metrics.RecordWatchError()
	app.logger.Warn("applying edits failed, resetting document: %v", err)
	if err := app.doc.Set(text); err != nil {
		return err
	}
	app.metrics.RecordEdits(1)
	return nil
}
