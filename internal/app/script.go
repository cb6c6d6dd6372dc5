package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/reconcile/internal/engine/textdiff"
)

// scriptEdit is one entry of an edit script:
//
//	- offset: 0
//	  length: 5
//	  text: "Hello"
type scriptEdit struct {
	Offset int    `yaml:"offset"`
	Length int    `yaml:"length"`
	Text   string `yaml:"text"`
}

// ParseScript decodes a YAML edit script. Edits apply in order, each to
// the text left by the ones before it. Unknown keys are errors.
func ParseScript(data []byte) ([]textdiff.Edit, error) {
	var entries []scriptEdit
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	edits := make([]textdiff.Edit, len(entries))
	for i, e := range entries {
		if e.Offset < 0 || e.Length < 0 {
			return nil, fmt.Errorf("edit %d: negative offset or length", i)
		}
		edits[i] = textdiff.Edit{Offset: e.Offset, Length: e.Length, Text: e.Text}
	}
	return edits, nil
}

// LoadScript reads and decodes the edit script at path.
func LoadScript(path string) ([]textdiff.Edit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func (app *Application) replayFile(ctx context.Context, path string) error {
	edits, err := LoadScript(path)
	if err != nil {
		return &OperationError{Op: "load script", Target: path, Err: err}
	}
	if err := app.Replay(ctx, edits); err != nil {
		return &OperationError{Op: "replay", Target: path, Err: err}
	}
	return nil
}

// Replay applies edits to the document one at a time. It stops at the
// first edit that does not fit the document or when ctx is done.
func (app *Application) Replay(ctx context.Context, edits []textdiff.Edit) error {
	start := time.Now()
	defer func() { app.metrics.RecordReplay(time.Since(start)) }()

	for i, e := range edits {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := app.doc.Replace(e.Offset, e.Length, e.Text); err != nil {
			return fmt.Errorf("edit %d %v: %w", i, e, err)
		}
		app.metrics.RecordEdits(1)
		app.logger.Debug("applied %v", e)
	}
	app.logger.Info("replayed %d edits", len(edits))
	return nil
}
