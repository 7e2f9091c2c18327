package codecommit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/codecommit"
	"github.com/aws/aws-sdk-go-v2/service/codecommit/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/retry"
)

// Client returns CodeCommit differences as domain diff entries.
type Client struct {
	api      API
	logger   *slog.Logger
	pageSize int32
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

	options := defaultOptions()
	applyOptions(options, opts)

	api := codecommit.NewFromConfig(*cfg, func(o *codecommit.Options) {
		if options.retryer != nil {
			o.Retryer = options.retryer
		}
	})
	return newClient(api, options), nil
}

// NewClientWithAPI creates a client around an existing API implementation.
// It is the injection point for fakes in tests.
func NewClientWithAPI(api API, opts ...Option) *Client {
	options := defaultOptions()
	applyOptions(options, opts)
	return newClient(api, options)
}

func newClient(api API, options *clientOptions) *Client {
	return &Client{api: api, logger: options.logger, pageSize: options.pageSize}
}

// GetDifferences returns every changed file between before and after, following
// pagination. An empty before compares against the empty tree, matching a
// newly created branch.
func (c *Client) GetDifferences(
	ctx context.Context,
	repository, before, after string,
) ([]domain.FileDiffEntry, error) {
	if repository == "" {
		return nil, ferrors.New(ferrors.CodeInvalidInput, "repository name cannot be empty")
	}
	if after == "" {
		return nil, ferrors.New(ferrors.CodeInvalidInput, "after commit cannot be empty")
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "getting differences",
			"repository", repository,
			"before", before,
			"after", after)
	}

	input := &codecommit.GetDifferencesInput{
		RepositoryName:       aws.String(repository),
		AfterCommitSpecifier: aws.String(after),
		MaxResults:           aws.Int32(c.pageSize),
	}
	if before != "" {
		input.BeforeCommitSpecifier = aws.String(before)
	}

	var entries []domain.FileDiffEntry
	for {
		output, err := c.api.GetDifferences(ctx, input)
		if err != nil {
			return nil, c.handleError(ctx, err, repository, before, after)
		}

		for _, d := range output.Differences {
			entries = append(entries, toDiffEntry(d))
		}

		if output.NextToken == nil || *output.NextToken == "" {
			break
		}
		input.NextToken = output.NextToken
	}

	if c.logger != nil {
		c.logger.InfoContext(ctx, "differences retrieved",
			"repository", repository,
			"after", after,
			"changed_files", len(entries))
	}
	return entries, nil
}

// handleError classifies SDK errors into package sentinels carrying taxonomy codes.
func (c *Client) handleError(ctx context.Context, err error, repository, before, after string) error {
	if c.logger != nil {
		c.logger.ErrorContext(ctx, "failed to get differences",
			"repository", repository,
			"error", err)
	}

	details := map[string]any{"repository": repository, "before": before, "after": after}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case notFoundCodes[code]:
			return ferrors.WrapWithContext(fmt.Errorf("%w: %s", ErrNotFound, apiErr.ErrorMessage()),
				ferrors.CodeNotFound, "GetDifferences", details)
		case accessDeniedCodes[code]:
			return ferrors.WrapWithContext(ErrAccessDenied, ferrors.CodeForbidden, "GetDifferences", details)
		case retry.IsThrottle(err):
			return ferrors.WrapWithContext(err, ferrors.CodeRateLimit, "GetDifferences", details)
		}
	}
	return ferrors.WrapWithContext(err, ferrors.CodeUnavailable, "GetDifferences", details)
}

func toDiffEntry(d types.Difference) domain.FileDiffEntry {
	entry := domain.FileDiffEntry{ChangeKind: domain.ChangeKind(d.ChangeType)}
	if d.AfterBlob != nil {
		entry.Path = aws.ToString(d.AfterBlob.Path)
	}
	if d.BeforeBlob != nil {
		entry.BeforePath = aws.ToString(d.BeforeBlob.Path)
	}
	return entry
}
