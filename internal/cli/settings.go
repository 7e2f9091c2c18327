package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/retry"
)

// Settings are the process-level options shared by all commands.
type Settings struct {
	ConfigPath  string `mapstructure:"config"`
	Region      string `mapstructure:"region"`
	Profile     string `mapstructure:"profile"`
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
	Concurrency int    `mapstructure:"concurrency"`
	MaxRetries  int    `mapstructure:"max-retries"`
}

func (a *App) settings() (Settings, error) {
	var s Settings
	if err := a.v.Unmarshal(&s); err != nil {
		return s, errors.Wrap(err, errors.CodeInvalidConfig, "failed to read settings")
	}
	if s.Concurrency < 0 {
		return s, errors.New(errors.CodeInvalidInput, "concurrency cannot be negative")
	}
	if s.MaxRetries < 0 {
		return s, errors.New(errors.CodeInvalidInput, "max-retries cannot be negative")
	}
	return s, nil
}

// retryer returns the throttling-only retry policy for AWS clients, or nil to
// keep the SDK default when max-retries is unset.
func (a *App) retryer() (aws.Retryer, error) {
	s, err := a.settings()
	if err != nil || s.MaxRetries == 0 {
		return nil, err
	}
	return retry.New(s.MaxRetries, retry.DefaultBaseDelay, retry.DefaultMaxDelay), nil
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, errors.Newf(errors.CodeInvalidInput, "unknown log level %q", level)
	}
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.Newf(errors.CodeInvalidInput, "unknown log format %q", format)
	}
}
