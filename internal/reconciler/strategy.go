package reconciler

import (
	"context"

	"github.com/dshills/reconcile/internal/engine/document"
	"github.com/dshills/reconcile/internal/reconciler/dirty"
)

// Strategy reconciles one content type of a document.
type Strategy interface {
	// SetDocument is called on Install with the document and on Uninstall
	// with nil.
	SetDocument(doc *document.Document)

	// Reconcile handles the part of region that lies in partition.
	// It runs on the reconciler goroutine and should honor ctx.
	Reconcile(ctx context.Context, region dirty.Region, partition document.TypedRegion) error
}

// InitialReconciler is implemented by strategies that want to process the
// whole document once after Install.
type InitialReconciler interface {
	InitialReconcile(ctx context.Context) error
}

// StrategyFunc adapts a function to Strategy. SetDocument is a no-op.
type StrategyFunc func(ctx context.Context, region dirty.Region, partition document.TypedRegion) error

// SetDocument implements Strategy.
func (f StrategyFunc) SetDocument(*document.Document) {}

// Reconcile implements Strategy.
func (f StrategyFunc) Reconcile(ctx context.Context, region dirty.Region, partition document.TypedRegion) error {
	return f(ctx, region, partition)
}

// Decompose converts a document change into dirty regions. A replace yields
// a REMOVE followed by an INSERT at the same offset.
func Decompose(e document.Event) []dirty.Region {
	regions := make([]dirty.Region, 0, 2)
	if e.Length > 0 {
		regions = append(regions, dirty.NewRemove(e.Offset, e.Length))
	}
	if e.Text != "" {
		regions = append(regions, dirty.NewInsert(e.Offset, e.Text))
	}
	return regions
}
