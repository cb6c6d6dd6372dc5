package reconciler

import (
	"time"

	"github.com/dshills/reconcile/internal/logging"
)

// DefaultDelay is how long edits must settle before reconciling.
const DefaultDelay = 500 * time.Millisecond

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithStrategy registers s for contentType, replacing any previous one.
// A nil strategy removes the registration.
func WithStrategy(contentType string, s Strategy) Option {
	return func(r *Reconciler) {
		if s == nil {
			delete(r.strategies, contentType)
			return
		}
		r.strategies[contentType] = s
	}
}

// WithDefaultStrategy sets the strategy for content types without their own.
func WithDefaultStrategy(s Strategy) Option {
	return func(r *Reconciler) {
		r.fallback = s
	}
}

// WithDelay sets how long the queue must stay unchanged before regions are
// processed. Zero processes regions as soon as they arrive.
func WithDelay(d time.Duration) Option {
	return func(r *Reconciler) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithErrorHandler sets a callback for strategy failures. It runs on the
// reconciler goroutine.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Reconciler) {
		r.onError = fn
	}
}
