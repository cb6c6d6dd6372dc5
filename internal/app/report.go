package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/dshills/reconcile/internal/reconciler"
	"github.com/dshills/reconcile/internal/reconciler/lua"
	"github.com/dshills/reconcile/internal/reconciler/summary"
)

// Report formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Report is what the run observed.
type Report struct {
	File        string           `yaml:"file"`
	DocumentID  string           `yaml:"document_id"`
	Length      int              `yaml:"length"`
	Lines       int              `yaml:"lines"`
	Stamp       uint64           `yaml:"stamp"`
	Reconciler  reconciler.Stats `yaml:"reconciler"`
	Metrics     MetricsSnapshot  `yaml:"metrics"`
	Summary     []summary.Counts `yaml:"summary,omitempty"`
	Annotations []lua.Annotation `yaml:"annotations,omitempty"`
}

// Report collects the current state.
func (app *Application) Report() Report {
	r := Report{
		File:       app.opts.File,
		DocumentID: app.doc.ID().String(),
		Length:     app.doc.Len(),
		Lines:      app.doc.NumberOfLines(),
		Stamp:      app.doc.Stamp(),
		Reconciler: app.reconciler.Stats(),
		Metrics:    app.metrics.Snapshot(),
	}
	if app.summary != nil {
		r.Summary = app.summary.Counts()
	}
	if app.lua != nil {
		r.Annotations = app.lua.Annotations()
	}
	return r
}

// Write renders the report in format, FormatText or FormatYAML.
func (r Report) Write(w io.Writer, format string) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return r.writeText(w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func (r Report) writeText(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d bytes, %d lines, stamp %d\n", r.File, r.Length, r.Lines, r.Stamp)
	fmt.Fprintf(&sb, "regions: %d enqueued, %d merged, %d reconciled, %d strategy calls, %d errors\n",
		r.Reconciler.Enqueued, r.Reconciler.Merged, r.Reconciler.Reconciled,
		r.Reconciler.StrategyCalls, r.Reconciler.Errors)
	fmt.Fprintf(&sb, "input: %d edits, %d file changes\n", r.Metrics.EditsApplied, r.Metrics.FileChanges)

	if len(r.Summary) > 0 {
		sb.WriteString("\n")
		tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tPARTITIONS\tBYTES\tINSERTS\tREMOVES\t+BYTES\t-BYTES\tLINES")
		for _, c := range r.Summary {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
				c.ContentType, c.Partitions, c.Bytes, c.Inserts, c.Removes,
				c.BytesInserted, c.BytesRemoved, c.LinesTouched)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.Annotations) > 0 {
		sb.WriteString("\n")
		for _, a := range r.Annotations {
			fmt.Fprintf(&sb, "%s:%s [%s]\n", r.File, a, a.ContentType)
		}
	}

	for _, msg := range r.Metrics.Errors {
		fmt.Fprintf(&sb, "error: %s\n", msg)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
