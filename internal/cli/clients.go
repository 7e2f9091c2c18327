package cli

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/codecommit"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/codepipeline"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/secrets"
)

func (a *App) pipelineClient(ctx context.Context) (*codepipeline.Client, error) {
	awsCfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	r, err := a.retryer()
	if err != nil {
		return nil, err
	}
	return codepipeline.NewClientWithConfig(&awsCfg, codepipeline.WithLogger(a.logger), codepipeline.WithRetryer(r))
}

func (a *App) commitClient(ctx context.Context) (*codecommit.Client, error) {
	awsCfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	r, err := a.retryer()
	if err != nil {
		return nil, err
	}
	return codecommit.NewClientWithConfig(&awsCfg, codecommit.WithLogger(a.logger), codecommit.WithRetryer(r))
}

func (a *App) secretsClient(ctx context.Context) (*secrets.Client, error) {
	awsCfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	r, err := a.retryer()
	if err != nil {
		return nil, err
	}
	return secrets.NewClientWithConfig(&awsCfg, secrets.WithLogger(a.logger), secrets.WithRetryer(r))
}
