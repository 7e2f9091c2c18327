package codecommit

import (
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// DefaultPageSize is the MaxResults requested per GetDifferences page.
const DefaultPageSize = 400

// clientOptions holds configuration options for the CodeCommit client.
type clientOptions struct {
	logger   *slog.Logger
	retryer  aws.Retryer
	pageSize int32
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

// WithPageSize sets MaxResults per page. Values <= 0 keep the default.
func WithPageSize(size int32) Option {
	return func(opts *clientOptions) {
		if size > 0 {
			opts.pageSize = size
		}
	}
}

func defaultOptions() *clientOptions {
	return &clientOptions{pageSize: DefaultPageSize}
}

func applyOptions(opts *clientOptions, options []Option) {
	for _, option := range options {
		option(opts)
	}
}
