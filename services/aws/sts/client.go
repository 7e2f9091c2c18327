package sts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/retry"
)

var roleArnPattern = regexp.MustCompile(`^arn:aws[a-z-]*:iam::(\d{12}):role/.+$`)

// Credentials are temporary credentials for one account.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Expires         time.Time
}

// Env renders the credentials as the environment variables the AWS CLI and
// SDKs read.
func (c Credentials) Env() []string {
	return []string{
		"AWS_ACCESS_KEY_ID=" + c.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY=" + c.SecretAccessKey,
		"AWS_SESSION_TOKEN=" + c.SessionToken,
		"AWS_REGION=" + c.Region,
		"AWS_DEFAULT_REGION=" + c.Region,
	}
}

// Config returns a copy of base that signs with these credentials in their
// region, for SDK clients acting inside the assumed account.
func (c Credentials) Config(base aws.Config) aws.Config {
	cfg := base.Copy()
	cfg.Region = c.Region
	cfg.Credentials = aws.NewCredentialsCache(
		credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken))
	return cfg
}

// Client assumes roles within a single target account.
type Client struct {
	api         API
	account     domain.Account
	logger      *slog.Logger
	duration    time.Duration
	sessionName string
}

// NewClient creates a client scoped to account from the default AWS
// configuration chain.
func NewClient(ctx context.Context, account domain.Account, opts ...Option) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewClientWithConfig(&cfg, account, opts...)
}

// NewClientWithConfig creates a client scoped to account from an explicit
// AWS configuration.
func NewClientWithConfig(cfg *aws.Config, account domain.Account, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("config region cannot be empty")
	}

	options := defaultOptions()
	applyOptions(options, opts)

	api := sts.NewFromConfig(*cfg, func(o *sts.Options) {
		if options.retryer != nil {
			o.Retryer = options.retryer
		}
	})
	return newClient(api, account, options)
}

// NewClientWithAPI creates a client around an existing API implementation.
func NewClientWithAPI(api API, account domain.Account, opts ...Option) (*Client, error) {
	options := defaultOptions()
	applyOptions(options, opts)
	return newClient(api, account, options)
}

func newClient(api API, account domain.Account, options *clientOptions) (*Client, error) {
	if !domain.ValidAccountNumber(account.Number) {
		return nil, ferrors.Newf(ferrors.CodeInvalidConfig, "invalid account number %q", account.Number)
	}
	return &Client{
		api:         api,
		account:     account,
		logger:      options.logger,
		duration:    options.duration,
		sessionName: options.sessionName,
	}, nil
}

// RoleArn returns the ARN of a named role in the client's account.
func (c *Client) RoleArn(role string) string {
	return domain.RoleArn(c.account.Number, role)
}

// AssumeRole assumes roleArn and returns its temporary credentials. The role
// must live in the client's account.
func (c *Client) AssumeRole(ctx context.Context, roleArn string) (*Credentials, error) {
	m := roleArnPattern.FindStringSubmatch(roleArn)
	if m == nil {
		return nil, ferrors.Newf(ferrors.CodeInvalidInput, "malformed role ARN %q", roleArn)
	}
	if m[1] != c.account.Number {
		return nil, ferrors.WrapWithContext(ErrCrossAccount, ferrors.CodeForbidden, "AssumeRole",
			map[string]any{"role_arn": roleArn, "account": c.account.Number, "stage": c.account.Stage})
	}

	output, err := c.api.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(c.sessionName),
		DurationSeconds: aws.Int32(int32(c.duration / time.Second)),
	})
	if err != nil {
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "failed to assume role",
				"role_arn", roleArn,
				"stage", c.account.Stage,
				"error", err)
		}
		return nil, classify(err, roleArn)
	}
	if output.Credentials == nil {
		return nil, ferrors.Newf(ferrors.CodeInternal, "AssumeRole returned no credentials for %s", roleArn)
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "role assumed", "role_arn", roleArn, "stage", c.account.Stage)
	}
	return &Credentials{
		AccessKeyID:     aws.ToString(output.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(output.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(output.Credentials.SessionToken),
		Region:          c.account.Region,
		Expires:         aws.ToTime(output.Credentials.Expiration),
	}, nil
}

func classify(err error, roleArn string) error {
	details := map[string]any{"role_arn": roleArn}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException":
			return ferrors.WrapWithContext(ErrAccessDenied, ferrors.CodeForbidden, "AssumeRole", details)
		case "ExpiredTokenException", "RegionDisabledException":
			return ferrors.WrapWithContext(err, ferrors.CodeForbidden, "AssumeRole", details)
		}
		if retry.IsThrottle(err) {
			return ferrors.WrapWithContext(err, ferrors.CodeRateLimit, "AssumeRole", details)
		}
	}
	return ferrors.WrapWithContext(err, ferrors.CodeUnavailable, "AssumeRole", details)
}
