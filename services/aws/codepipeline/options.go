package codepipeline

import (
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// clientOptions holds configuration options for the CodePipeline client.
type clientOptions struct {
	logger  *slog.Logger
	retryer aws.Retryer
}

// Option is a functional option for configuring the Client.
type Option func(*clientOptions)

// WithLogger configures the client with a custom logger.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

// WithRetryer overrides the SDK retry policy.
// If retryer is nil, default AWS SDK retry behavior will be used.
func WithRetryer(retryer aws.Retryer) Option {
	return func(opts *clientOptions) {
		opts.retryer = retryer
	}
}

func applyOptions(opts *clientOptions, options []Option) {
	for _, option := range options {
		option(opts)
	}
}
