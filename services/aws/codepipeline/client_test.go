package codepipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// mockAPI implements API for testing
type mockAPI struct {
	startFunc    func(ctx context.Context, params *codepipeline.StartPipelineExecutionInput) (*codepipeline.StartPipelineExecutionOutput, error)
	stateFunc    func(ctx context.Context, params *codepipeline.GetPipelineStateInput) (*codepipeline.GetPipelineStateOutput, error)
	approvalFunc func(ctx context.Context, params *codepipeline.PutApprovalResultInput) (*codepipeline.PutApprovalResultOutput, error)
	getFunc      func(ctx context.Context, params *codepipeline.GetPipelineInput) (*codepipeline.GetPipelineOutput, error)
	createFunc   func(ctx context.Context, params *codepipeline.CreatePipelineInput) (*codepipeline.CreatePipelineOutput, error)
	updateFunc   func(ctx context.Context, params *codepipeline.UpdatePipelineInput) (*codepipeline.UpdatePipelineOutput, error)
}

func (m *mockAPI) StartPipelineExecution(ctx context.Context, params *codepipeline.StartPipelineExecutionInput, _ ...func(*codepipeline.Options)) (*codepipeline.StartPipelineExecutionOutput, error) {
	if m.startFunc != nil {
		return m.startFunc(ctx, params)
	}
	return nil, fmt.Errorf("StartPipelineExecution not implemented")
}

func (m *mockAPI) GetPipelineState(ctx context.Context, params *codepipeline.GetPipelineStateInput, _ ...func(*codepipeline.Options)) (*codepipeline.GetPipelineStateOutput, error) {
	if m.stateFunc != nil {
		return m.stateFunc(ctx, params)
	}
	return nil, fmt.Errorf("GetPipelineState not implemented")
}

func (m *mockAPI) PutApprovalResult(ctx context.Context, params *codepipeline.PutApprovalResultInput, _ ...func(*codepipeline.Options)) (*codepipeline.PutApprovalResultOutput, error) {
	if m.approvalFunc != nil {
		return m.approvalFunc(ctx, params)
	}
	return nil, fmt.Errorf("PutApprovalResult not implemented")
}

func (m *mockAPI) GetPipeline(ctx context.Context, params *codepipeline.GetPipelineInput, _ ...func(*codepipeline.Options)) (*codepipeline.GetPipelineOutput, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, params)
	}
	return nil, fmt.Errorf("GetPipeline not implemented")
}

func (m *mockAPI) CreatePipeline(ctx context.Context, params *codepipeline.CreatePipelineInput, _ ...func(*codepipeline.Options)) (*codepipeline.CreatePipelineOutput, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, params)
	}
	return nil, fmt.Errorf("CreatePipeline not implemented")
}

func (m *mockAPI) UpdatePipeline(ctx context.Context, params *codepipeline.UpdatePipelineInput, _ ...func(*codepipeline.Options)) (*codepipeline.UpdatePipelineOutput, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, params)
	}
	return nil, fmt.Errorf("UpdatePipeline not implemented")
}

func TestStartExecution(t *testing.T) {
	api := &mockAPI{
		startFunc: func(_ context.Context, params *codepipeline.StartPipelineExecutionInput) (*codepipeline.StartPipelineExecutionOutput, error) {
			assert.Equal(t, "FrontendStackPipeline", aws.ToString(params.Name))
			return &codepipeline.StartPipelineExecutionOutput{PipelineExecutionId: aws.String("exec-1")}, nil
		},
	}

	id, err := NewClientWithAPI(api).StartExecution(context.Background(), "FrontendStackPipeline")
	require.NoError(t, err)
	assert.Equal(t, "exec-1", id)
}

func TestStartExecutionErrors(t *testing.T) {
	tests := []struct {
		name     string
		apiErr   error
		sentinel error
		code     ferrors.ErrorCode
	}{
		{"not found", &smithy.GenericAPIError{Code: "PipelineNotFoundException"}, ErrPipelineNotFound, ferrors.CodeNotFound},
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException"}, ErrThrottled, ferrors.CodeRateLimit},
		{"concurrency limit", &smithy.GenericAPIError{Code: "ConcurrentPipelineExecutionsLimitExceededException"}, ErrThrottled, ferrors.CodeRateLimit},
		{"other", fmt.Errorf("boom"), nil, ferrors.CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{
				startFunc: func(context.Context, *codepipeline.StartPipelineExecutionInput) (*codepipeline.StartPipelineExecutionOutput, error) {
					return nil, tt.apiErr
				},
			}
			_, err := NewClientWithAPI(api).StartExecution(context.Background(), "p")
			require.Error(t, err)
			assert.Equal(t, tt.code, ferrors.GetCode(err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}

	_, err := NewClientWithAPI(&mockAPI{}).StartExecution(context.Background(), "")
	assert.True(t, ferrors.HasCode(err, ferrors.CodeInvalidInput))
}

func stageState(name string, status types.StageExecutionStatus, actions ...types.ActionState) types.StageState {
	return types.StageState{
		StageName:       aws.String(name),
		LatestExecution: &types.StageExecution{Status: status, PipelineExecutionId: aws.String("exec-1")},
		ActionStates:    actions,
	}
}

func actionState(name string, status types.ActionExecutionStatus, token string) types.ActionState {
	exec := &types.ActionExecution{Status: status}
	if token != "" {
		exec.Token = aws.String(token)
	}
	return types.ActionState{ActionName: aws.String(name), LatestExecution: exec}
}

func TestState(t *testing.T) {
	tests := []struct {
		name        string
		stages      []types.StageState
		status      domain.PipelineStatus
		failedStage string
	}{
		{
			name: "halted at staging",
			stages: []types.StageState{
				stageState("Source", types.StageExecutionStatusSucceeded),
				stageState("Build", types.StageExecutionStatusSucceeded),
				stageState("Deploy-DEV", types.StageExecutionStatusSucceeded),
				stageState("Deploy-STAGING", types.StageExecutionStatusFailed),
				{StageName: aws.String("Deploy-PROD")},
			},
			status:      domain.PipelineStatusFailed,
			failedStage: "Deploy-STAGING",
		},
		{
			name: "waiting for approval",
			stages: []types.StageState{
				stageState("Source", types.StageExecutionStatusSucceeded),
				stageState("Deploy-PROD", types.StageExecutionStatusInProgress,
					actionState("ManualApproval", types.ActionExecutionStatusInProgress, "tok")),
			},
			status: domain.PipelineStatusWaitingApproval,
		},
		{
			name: "all succeeded",
			stages: []types.StageState{
				stageState("Source", types.StageExecutionStatusSucceeded),
				stageState("Build", types.StageExecutionStatusSucceeded),
			},
			status: domain.PipelineStatusSucceeded,
		},
		{
			name:   "never run",
			stages: []types.StageState{{StageName: aws.String("Source")}},
			status: domain.PipelineStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{
				stateFunc: func(context.Context, *codepipeline.GetPipelineStateInput) (*codepipeline.GetPipelineStateOutput, error) {
					return &codepipeline.GetPipelineStateOutput{StageStates: tt.stages}, nil
				},
			}
			state, err := NewClientWithAPI(api).State(context.Background(), "p")
			require.NoError(t, err)
			assert.Equal(t, tt.status, state.Status)
			assert.Equal(t, tt.failedStage, state.FailedStage)
			assert.Len(t, state.Stages, len(tt.stages))
		})
	}
}

func TestApproveAndReject(t *testing.T) {
	var recorded *codepipeline.PutApprovalResultInput
	api := &mockAPI{
		stateFunc: func(context.Context, *codepipeline.GetPipelineStateInput) (*codepipeline.GetPipelineStateOutput, error) {
			return &codepipeline.GetPipelineStateOutput{StageStates: []types.StageState{
				stageState("Deploy-PROD", types.StageExecutionStatusInProgress,
					actionState("ManualApproval", types.ActionExecutionStatusInProgress, "token-123")),
			}}, nil
		},
		approvalFunc: func(_ context.Context, params *codepipeline.PutApprovalResultInput) (*codepipeline.PutApprovalResultOutput, error) {
			recorded = params
			return &codepipeline.PutApprovalResultOutput{}, nil
		},
	}
	client := NewClientWithAPI(api)

	require.NoError(t, client.Approve(context.Background(), "p", "Deploy-PROD", "ManualApproval", "looks good"))
	require.NotNil(t, recorded)
	assert.Equal(t, "token-123", aws.ToString(recorded.Token))
	assert.Equal(t, types.ApprovalStatusApproved, recorded.Result.Status)

	require.NoError(t, client.Reject(context.Background(), "p", "Deploy-PROD", "ManualApproval", "no"))
	assert.Equal(t, types.ApprovalStatusRejected, recorded.Result.Status)

	err := client.Approve(context.Background(), "p", "Deploy-STAGING", "ManualApproval", "")
	assert.ErrorIs(t, err, ErrApprovalNotPending)
}

func sampleGraph() []domain.StageDefinition {
	prod := domain.Account{Stage: "prod", Number: "333333333333", Region: "eu-central-1"}
	return []domain.StageDefinition{
		{Name: "Source", Actions: []domain.Action{{
			Name: "Source", Kind: domain.ActionKindSource, RunOrder: 1,
			Repository: "aws-cdk-pipeline-demo", Branch: "main", OutputArtifact: "SourceArtifact",
		}}},
		{Name: "Build", Actions: []domain.Action{{
			Name: "Build", Kind: domain.ActionKindBuild, RunOrder: 1,
			InputArtifact: "SourceArtifact", ProjectName: "FrontendStackPipeline-Build",
		}}},
		{Name: "Deploy-PROD", Actions: []domain.Action{
			{Name: "ManualApproval", Kind: domain.ActionKindManualApproval, RunOrder: 1, Account: &prod, AdditionalInformation: "Review Before Deploy prod"},
			{Name: "Deploy-PROD", Kind: domain.ActionKindDeploy, RunOrder: 2, Account: &prod, InputArtifact: "SourceArtifact", ProjectName: "FrontendStackPipeline-DeployToprod"},
		}},
	}
}

func TestDeclaration(t *testing.T) {
	cfg := DeclarationConfig{Name: "FrontendStackPipeline", RoleArn: "arn:aws:iam::999999999999:role/pipeline", ArtifactBucket: "artifacts"}

	decl, err := Declaration(cfg, sampleGraph())
	require.NoError(t, err)
	require.Len(t, decl.Stages, 3)

	source := decl.Stages[0].Actions[0]
	assert.Equal(t, types.ActionCategorySource, source.ActionTypeId.Category)
	assert.Equal(t, "main", source.Configuration["BranchName"])
	assert.Equal(t, "SourceArtifact", aws.ToString(source.OutputArtifacts[0].Name))

	prod := decl.Stages[2]
	require.Len(t, prod.Actions, 2)
	assert.Equal(t, types.ActionCategoryApproval, prod.Actions[0].ActionTypeId.Category)
	assert.Equal(t, int32(1), aws.ToInt32(prod.Actions[0].RunOrder))
	assert.Equal(t, types.ActionCategoryBuild, prod.Actions[1].ActionTypeId.Category)
	assert.Equal(t, int32(2), aws.ToInt32(prod.Actions[1].RunOrder))
	assert.Equal(t, "FrontendStackPipeline-DeployToprod", prod.Actions[1].Configuration["ProjectName"])

	again, err := Declaration(cfg, sampleGraph())
	require.NoError(t, err)
	assert.Equal(t, decl, again)

	_, err = Declaration(DeclarationConfig{Name: "x"}, sampleGraph())
	assert.True(t, ferrors.HasCode(err, ferrors.CodeInvalidConfig))

	_, err = Declaration(cfg, nil)
	assert.True(t, ferrors.HasCode(err, ferrors.CodeInvalidConfig))
}

func TestApplyCreatesWhenMissing(t *testing.T) {
	created := false
	api := &mockAPI{
		getFunc: func(context.Context, *codepipeline.GetPipelineInput) (*codepipeline.GetPipelineOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "PipelineNotFoundException"}
		},
		createFunc: func(_ context.Context, params *codepipeline.CreatePipelineInput) (*codepipeline.CreatePipelineOutput, error) {
			created = true
			out := *params.Pipeline
			out.Version = aws.Int32(1)
			return &codepipeline.CreatePipelineOutput{Pipeline: &out}, nil
		},
	}

	decl, err := Declaration(DeclarationConfig{Name: "p", RoleArn: "r", ArtifactBucket: "b"}, sampleGraph())
	require.NoError(t, err)

	result, err := NewClientWithAPI(api).Apply(context.Background(), decl)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, result.Created)
	assert.Equal(t, int32(1), result.Version)
}

func TestApplyUpdatesWhenPresent(t *testing.T) {
	api := &mockAPI{
		getFunc: func(context.Context, *codepipeline.GetPipelineInput) (*codepipeline.GetPipelineOutput, error) {
			return &codepipeline.GetPipelineOutput{Pipeline: &types.PipelineDeclaration{Name: aws.String("p"), Version: aws.Int32(4)}}, nil
		},
		updateFunc: func(_ context.Context, params *codepipeline.UpdatePipelineInput) (*codepipeline.UpdatePipelineOutput, error) {
			assert.Equal(t, int32(4), aws.ToInt32(params.Pipeline.Version))
			out := *params.Pipeline
			out.Version = aws.Int32(5)
			return &codepipeline.UpdatePipelineOutput{Pipeline: &out}, nil
		},
		createFunc: func(context.Context, *codepipeline.CreatePipelineInput) (*codepipeline.CreatePipelineOutput, error) {
			t.Fatal("create must not be called for an existing pipeline")
			return nil, nil
		},
	}

	decl, err := Declaration(DeclarationConfig{Name: "p", RoleArn: "r", ArtifactBucket: "b"}, sampleGraph())
	require.NoError(t, err)

	result, err := NewClientWithAPI(api).Apply(context.Background(), decl)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, int32(5), result.Version)
	assert.Nil(t, decl.Version, "apply must not mutate the caller's declaration")
}

func TestApplyPropagatesOtherErrors(t *testing.T) {
	api := &mockAPI{
		getFunc: func(context.Context, *codepipeline.GetPipelineInput) (*codepipeline.GetPipelineOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "AccessDeniedException"}
		},
	}
	_, err := NewClientWithAPI(api).Apply(context.Background(), &types.PipelineDeclaration{Name: aws.String("p")})
	assert.ErrorIs(t, err, ErrAccessDenied)
}
