package secrets

import (
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
)

type clientOptions struct {
	logger  *slog.Logger
	retryer aws.Retryer
	cache   Cache
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

// WithCache caches secret values. If cache is nil, every read calls the API.
func WithCache(cache Cache) Option {
	return func(opts *clientOptions) {
		opts.cache = cache
	}
}

func applyOptions(opts *clientOptions, options []Option) {
	for _, option := range options {
		option(opts)
	}
}
