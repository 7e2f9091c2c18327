package engine

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
)

type options struct {
	logger   *slog.Logger
	approver Approver
	runners  map[domain.ActionKind]ActionRunner
	onStage  func(domain.StageEvent)
	newID    func() string
}

// Option configures an Engine.
type Option func(*options)

// WithLogger configures the engine with a custom logger.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithApprover sets the approver of manual approval actions. Without one,
// every approval is rejected.
func WithApprover(a Approver) Option {
	return func(o *options) {
		o.approver = a
	}
}

// WithRunner sets the runner of one action kind.
func WithRunner(kind domain.ActionKind, r ActionRunner) Option {
	return func(o *options) {
		o.runners[kind] = r
	}
}

// WithStageHandler registers fn to receive every stage transition.
func WithStageHandler(fn func(domain.StageEvent)) Option {
	return func(o *options) {
		o.onStage = fn
	}
}

// WithIDGenerator replaces the uuid execution id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func defaultOptions() options {
	return options{
		runners: make(map[domain.ActionKind]ActionRunner),
		newID:   uuid.NewString,
	}
}
