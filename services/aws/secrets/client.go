package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/retry"
)

// GitCredentials are HTTPS git credentials stored as a JSON secret of the
// form {"username": "...", "password": "..."}.
type GitCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Client reads secret values.
type Client struct {
	api    API
	logger *slog.Logger
	cache  Cache
}

// NewClient creates a client from the default AWS configuration chain.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewClientWithConfig(&cfg, opts...)
}

// NewClientWithConfig creates a client from an explicit AWS configuration.
func NewClientWithConfig(cfg *aws.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("config region cannot be empty")
	}

	options := &clientOptions{}
	applyOptions(options, opts)

	api := secretsmanager.NewFromConfig(*cfg, func(o *secretsmanager.Options) {
		if options.retryer != nil {
			o.Retryer = options.retryer
		}
	})
	return &Client{api: api, logger: options.logger, cache: options.cache}, nil
}

// NewClientWithAPI creates a client around an existing API implementation.
func NewClientWithAPI(api API, opts ...Option) *Client {
	options := &clientOptions{}
	applyOptions(options, opts)
	return &Client{api: api, logger: options.logger, cache: options.cache}
}

// GetSecret returns the current string value of the secret.
func (c *Client) GetSecret(ctx context.Context, secretID string) (string, error) {
	if secretID == "" {
		return "", ferrors.New(ferrors.CodeInvalidInput, "secret id cannot be empty")
	}
	if c.cache != nil {
		if v, ok := c.cache.Get(secretID); ok {
			return v, nil
		}
	}

	output, err := c.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "failed to get secret", "secret_id", secretID, "error", err)
		}
		return "", classify(err, secretID)
	}

	value := aws.ToString(output.SecretString)
	if value == "" {
		return "", ferrors.WrapWithContext(ErrSecretEmpty, ferrors.CodeNotFound, "GetSecretValue",
			map[string]any{"secret_id": secretID})
	}

	if c.cache != nil {
		c.cache.Set(secretID, value)
	}
	if c.logger != nil {
		c.logger.DebugContext(ctx, "secret retrieved", "secret_id", secretID)
	}
	return value, nil
}

// GitCredentials reads and decodes a git credentials secret.
func (c *Client) GitCredentials(ctx context.Context, secretID string) (*GitCredentials, error) {
	value, err := c.GetSecret(ctx, secretID)
	if err != nil {
		return nil, err
	}

	var creds GitCredentials
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		// The decode error may quote the value.
		return nil, ferrors.WrapWithContext(ErrMalformedSecret, ferrors.CodeInvalidConfig,
			"secret is not a JSON object", map[string]any{"secret_id": secretID})
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, ferrors.WrapWithContext(ErrMalformedSecret, ferrors.CodeInvalidConfig,
			"secret needs a username and a password", map[string]any{"secret_id": secretID})
	}
	return &creds, nil
}

func classify(err error, secretID string) error {
	details := map[string]any{"secret_id": secretID}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case notFoundCodes[code]:
			return ferrors.WrapWithContext(ErrSecretNotFound, ferrors.CodeNotFound, "GetSecretValue", details)
		case accessDeniedCodes[code]:
			return ferrors.WrapWithContext(ErrAccessDenied, ferrors.CodeForbidden, "GetSecretValue", details)
		case retry.IsThrottle(err):
			return ferrors.WrapWithContext(err, ferrors.CodeRateLimit, "GetSecretValue", details)
		}
	}
	return ferrors.WrapWithContext(err, ferrors.CodeUnavailable, "GetSecretValue", details)
}
