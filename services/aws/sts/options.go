package sts

import (
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// DefaultSessionDuration is the lifetime requested for assumed credentials.
const DefaultSessionDuration = time.Hour

type clientOptions struct {
	logger      *slog.Logger
	retryer     aws.Retryer
	duration    time.Duration
	sessionName string
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
func WithRetryer(retryer aws.Retryer) Option {
	return func(opts *clientOptions) {
		opts.retryer = retryer
	}
}

// WithSessionDuration sets the lifetime of assumed credentials.
func WithSessionDuration(d time.Duration) Option {
	return func(opts *clientOptions) {
		if d > 0 {
			opts.duration = d
		}
	}
}

// WithSessionName sets the role session name recorded in CloudTrail.
func WithSessionName(name string) Option {
	return func(opts *clientOptions) {
		if name != "" {
			opts.sessionName = name
		}
	}
}

func defaultOptions() *clientOptions {
	return &clientOptions{duration: DefaultSessionDuration, sessionName: "forge-delivery"}
}

func applyOptions(opts *clientOptions, options []Option) {
	for _, option := range options {
		option(opts)
	}
}
