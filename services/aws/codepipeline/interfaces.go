package codepipeline

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
)

// API defines the subset of the AWS CodePipeline client used by Client.
type API interface {
	StartPipelineExecution(
		ctx context.Context,
		params *codepipeline.StartPipelineExecutionInput,
		optFns ...func(*codepipeline.Options),
	) (*codepipeline.StartPipelineExecutionOutput, error)

	GetPipelineState(
		ctx context.Context,
		params *codepipeline.GetPipelineStateInput,
		optFns ...func(*codepipeline.Options),
	) (*codepipeline.GetPipelineStateOutput, error)

	PutApprovalResult(
		ctx context.Context,
		params *codepipeline.PutApprovalResultInput,
		optFns ...func(*codepipeline.Options),
	) (*codepipeline.PutApprovalResultOutput, error)

	GetPipeline(
		ctx context.Context,
		params *codepipeline.GetPipelineInput,
		optFns ...func(*codepipeline.Options),
	) (*codepipeline.GetPipelineOutput, error)

	CreatePipeline(
		ctx context.Context,
		params *codepipeline.CreatePipelineInput,
		optFns ...func(*codepipeline.Options),
	) (*codepipeline.CreatePipelineOutput, error)

	UpdatePipeline(
		ctx context.Context,
		params *codepipeline.UpdatePipelineInput,
		optFns ...func(*codepipeline.Options),
	) (*codepipeline.UpdatePipelineOutput, error)
}
