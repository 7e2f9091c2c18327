package dispatch

import (
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
)

type options struct {
	logger      *slog.Logger
	matcher     Matcher
	concurrency int
	onDispatch  func(domain.DispatchEvent)
}

// Option configures a Dispatcher.
type Option func(*options)

// WithLogger configures the dispatcher with a custom logger.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMatcher replaces the default SubstringMatcher.
func WithMatcher(m Matcher) Option {
	return func(o *options) {
		if m != nil {
			o.matcher = m
		}
	}
}

// WithConcurrency bounds the number of start requests in flight. Values <= 0
// leave it unbounded.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithEventHandler registers fn to receive a DispatchEvent after every
// dispatch that got past the diff.
func WithEventHandler(fn func(domain.DispatchEvent)) Option {
	return func(o *options) {
		o.onDispatch = fn
	}
}
