package app

import (
	"github.com/dshills/reconcile/internal/config"
	"github.com/dshills/reconcile/internal/engine/document"
	"github.com/dshills/reconcile/internal/logging"
)

// newDocument builds a document for text as described by cfg.
func newDocument(cfg config.DocumentConfig, text string, logger *logging.Logger) (*document.Document, error) {
	opts := []document.Option{
		document.WithContent(text),
		document.WithStore(newStore(cfg.Store)),
		document.WithPartitioner(newPartitioner(cfg)),
		document.WithTrackerErrorHandler(func(err error) {
			logger.Warn("line index rebuilt after tracker error: %v", err)
		}),
	}
	if len(cfg.Delimiters) > 0 {
		opts = append(opts, document.WithDelimiters(cfg.Delimiters...))
	}
	return document.New(opts...)
}

func newStore(name string) document.Store {
	if name == config.StoreString {
		return &document.StringStore{}
	}
	return document.NewGapStore()
}

func newPartitioner(cfg config.DocumentConfig) document.Partitioner {
	if len(cfg.Partitions) == 0 {
		return document.NewSinglePartitioner(cfg.DefaultType)
	}
	rules := make([]document.Rule, len(cfg.Partitions))
	for i, r := range cfg.Partitions {
		rules[i] = document.Rule{Start: r.Start, End: r.End, ContentType: r.ContentType}
	}
	return document.NewRulePartitioner(cfg.DefaultType, rules...)
}
