package codepipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// Action providers used in declarations.
const (
	providerCodeCommit = "CodeCommit"
	providerCodeBuild  = "CodeBuild"
	providerManual     = "Manual"
	actionTypeVersion  = "1"
)

// DeclarationConfig holds the pipeline-level settings that are not part of the
// stage graph itself.
type DeclarationConfig struct {
	// Name is the pipeline name. It is also the idempotency key of Apply.
	Name string

	// RoleArn is the service role the pipeline runs as.
	RoleArn string

	// ArtifactBucket is the S3 bucket holding stage artifacts.
	ArtifactBucket string
}

// Declaration renders a stage graph into a CodePipeline declaration. It is a
// pure function of its inputs; rendering the same graph twice yields equal
// declarations.
func Declaration(cfg DeclarationConfig, graph []domain.StageDefinition) (*types.PipelineDeclaration, error) {
	if cfg.Name == "" || cfg.RoleArn == "" || cfg.ArtifactBucket == "" {
		return nil, ferrors.New(ferrors.CodeInvalidConfig, "pipeline name, role ARN and artifact bucket are required")
	}
	if len(graph) == 0 {
		return nil, ferrors.New(ferrors.CodeInvalidConfig, "stage graph is empty")
	}

	decl := &types.PipelineDeclaration{
		Name:    aws.String(cfg.Name),
		RoleArn: aws.String(cfg.RoleArn),
		ArtifactStore: &types.ArtifactStore{
			Type:     types.ArtifactStoreTypeS3,
			Location: aws.String(cfg.ArtifactBucket),
		},
		PipelineType: types.PipelineTypeV2,
	}

	for _, stage := range graph {
		sd := types.StageDeclaration{Name: aws.String(stage.Name)}
		for _, action := range stage.Actions {
			ad, err := actionDeclaration(action)
			if err != nil {
				return nil, fmt.Errorf("stage %s: %w", stage.Name, err)
			}
			sd.Actions = append(sd.Actions, ad)
		}
		decl.Stages = append(decl.Stages, sd)
	}
	return decl, nil
}

func actionDeclaration(action domain.Action) (types.ActionDeclaration, error) {
	ad := types.ActionDeclaration{
		Name:     aws.String(action.Name),
		RunOrder: aws.Int32(int32(action.RunOrder)),
	}
	if action.InputArtifact != "" {
		ad.InputArtifacts = []types.InputArtifact{{Name: aws.String(action.InputArtifact)}}
	}
	if action.OutputArtifact != "" {
		ad.OutputArtifacts = []types.OutputArtifact{{Name: aws.String(action.OutputArtifact)}}
	}

	switch action.Kind {
	case domain.ActionKindSource:
		ad.ActionTypeId = actionType(types.ActionCategorySource, providerCodeCommit)
		ad.Configuration = map[string]string{
			"RepositoryName":       action.Repository,
			"BranchName":           action.Branch,
			"PollForSourceChanges": "false",
		}
	case domain.ActionKindBuild, domain.ActionKindDeploy:
		ad.ActionTypeId = actionType(types.ActionCategoryBuild, providerCodeBuild)
		ad.Configuration = map[string]string{"ProjectName": action.ProjectName}
	case domain.ActionKindManualApproval:
		ad.ActionTypeId = actionType(types.ActionCategoryApproval, providerManual)
		if action.AdditionalInformation != "" {
			ad.Configuration = map[string]string{"CustomData": action.AdditionalInformation}
		}
	default:
		return ad, ferrors.Newf(ferrors.CodeInvalidConfig, "action %s has unknown kind %q", action.Name, action.Kind)
	}
	return ad, nil
}

func actionType(category types.ActionCategory, provider string) *types.ActionTypeId {
	return &types.ActionTypeId{
		Category: category,
		Owner:    types.ActionOwnerAws,
		Provider: aws.String(provider),
		Version:  aws.String(actionTypeVersion),
	}
}

// ApplyResult reports what Apply did.
type ApplyResult struct {
	PipelineName string `json:"pipeline_name"`
	Created      bool   `json:"created"`
	Version      int32  `json:"version"`
}

// Apply creates the pipeline when it does not exist and updates it otherwise.
// The pipeline name is the idempotency key, so applying the same declaration
// repeatedly converges on one pipeline.
func (c *Client) Apply(ctx context.Context, decl *types.PipelineDeclaration) (*ApplyResult, error) {
	if decl == nil || decl.Name == nil {
		return nil, ferrors.New(ferrors.CodeInvalidInput, "declaration must have a name")
	}
	name := aws.ToString(decl.Name)

	existing, err := c.api.GetPipeline(ctx, &codepipeline.GetPipelineInput{Name: decl.Name})
	if err != nil {
		classified := classify(err, "GetPipeline", name)
		if !errors.Is(classified, ErrPipelineNotFound) {
			return nil, classified
		}

		out, err := c.api.CreatePipeline(ctx, &codepipeline.CreatePipelineInput{Pipeline: decl})
		if err != nil {
			return nil, classify(err, "CreatePipeline", name)
		}
		if c.logger != nil {
			c.logger.InfoContext(ctx, "pipeline created", "pipeline_name", name)
		}
		return &ApplyResult{PipelineName: name, Created: true, Version: version(out.Pipeline)}, nil
	}

	update := *decl
	if existing.Pipeline != nil {
		update.Version = existing.Pipeline.Version
	}
	out, err := c.api.UpdatePipeline(ctx, &codepipeline.UpdatePipelineInput{Pipeline: &update})
	if err != nil {
		return nil, classify(err, "UpdatePipeline", name)
	}
	if c.logger != nil {
		c.logger.InfoContext(ctx, "pipeline updated", "pipeline_name", name)
	}
	return &ApplyResult{PipelineName: name, Version: version(out.Pipeline)}, nil
}

func version(decl *types.PipelineDeclaration) int32 {
	if decl == nil {
		return 0
	}
	return aws.ToInt32(decl.Version)
}
