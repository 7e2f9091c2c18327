// Command dispatch-lambda is the Lambda entrypoint of change dispatch. It
// consumes "CodeCommit Repository State Change" events and starts the
// pipelines watching the changed paths.
//
// The delivery configuration is read from FORGE_DELIVERY_CONFIG, relative to
// the function's task root.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/catalyst-forge-delivery/config"
	"github.com/input-output-hk/catalyst-forge-delivery/dispatch"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/codecommit"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/codepipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	h, err := setup(context.Background(), logger)
	if err != nil {
		logger.Error("failed to initialize dispatcher", "error", err)
		os.Exit(1)
	}
	lambda.Start(h.Handle)
}

func setup(ctx context.Context, logger *slog.Logger) (*handler, error) {
	root := os.Getenv("LAMBDA_TASK_ROOT")
	if root == "" {
		root = "."
	}
	path := os.Getenv("FORGE_DELIVERY_CONFIG")
	if path == "" {
		path = config.DefaultPath
	}

	cfg, err := config.Load(ctx, osfs.New(root), path)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	diffs, err := codecommit.NewClientWithConfig(&awsCfg, codecommit.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	trigger, err := codepipeline.NewClientWithConfig(&awsCfg, codepipeline.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	d, err := dispatch.New(diffs, trigger, cfg.Routes(), dispatch.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &handler{dispatcher: d, repository: cfg.Repository, branch: cfg.Branch, logger: logger}, nil
}
