package codepipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// Client wraps the CodePipeline API for triggering, observing and approving
// pipeline runs and for applying pipeline declarations.
type Client struct {
	api    API
	logger *slog.Logger
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

	api := codepipeline.NewFromConfig(*cfg, func(o *codepipeline.Options) {
		if options.retryer != nil {
			o.Retryer = options.retryer
		}
	})
	return &Client{api: api, logger: options.logger}, nil
}

// NewClientWithAPI creates a client around an existing API implementation.
func NewClientWithAPI(api API, opts ...Option) *Client {
	options := &clientOptions{}
	applyOptions(options, opts)
	return &Client{api: api, logger: options.logger}
}

// StartExecution starts a new execution of the named pipeline and returns the
// execution id assigned by the service. Failures are reported, never retried
// here: ErrPipelineNotFound is permanent, ErrThrottled is transient.
func (c *Client) StartExecution(ctx context.Context, pipelineName string) (string, error) {
	if pipelineName == "" {
		return "", ferrors.New(ferrors.CodeInvalidInput, "pipeline name cannot be empty")
	}

	output, err := c.api.StartPipelineExecution(ctx, &codepipeline.StartPipelineExecutionInput{
		Name: aws.String(pipelineName),
	})
	if err != nil {
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "failed to start pipeline execution",
				"pipeline_name", pipelineName,
				"error", err)
		}
		return "", classify(err, "StartPipelineExecution", pipelineName)
	}

	executionID := aws.ToString(output.PipelineExecutionId)
	if c.logger != nil {
		c.logger.InfoContext(ctx, "pipeline execution started",
			"pipeline_name", pipelineName,
			"execution_id", executionID)
	}
	return executionID, nil
}

// ActionState is the latest status of one action.
type ActionState struct {
	Name    string                `json:"name"`
	Status  domain.PipelineStatus `json:"status"`
	Summary string                `json:"summary,omitempty"`

	// token is the approval token of an in-progress manual approval.
	token string
}

// StageState is the latest status of one stage.
type StageState struct {
	Name        string                `json:"name"`
	Status      domain.PipelineStatus `json:"status"`
	ExecutionID string                `json:"execution_id,omitempty"`
	Actions     []ActionState         `json:"actions"`
}

// PipelineState is the status surface of a pipeline's latest run.
type PipelineState struct {
	PipelineName string                `json:"pipeline_name"`
	Status       domain.PipelineStatus `json:"status"`
	FailedStage  string                `json:"failed_stage,omitempty"`
	Stages       []StageState          `json:"stages"`
}

// State returns the latest state of every stage of the pipeline and derives
// the overall run status: a run is failed at the first failed stage, waiting
// while a manual approval is pending, and succeeded once every stage succeeded.
func (c *Client) State(ctx context.Context, pipelineName string) (*PipelineState, error) {
	output, err := c.api.GetPipelineState(ctx, &codepipeline.GetPipelineStateInput{
		Name: aws.String(pipelineName),
	})
	if err != nil {
		return nil, classify(err, "GetPipelineState", pipelineName)
	}

	state := &PipelineState{PipelineName: pipelineName, Status: domain.PipelineStatusPending}
	succeeded := 0
	for _, s := range output.StageStates {
		stage := toStageState(s)
		state.Stages = append(state.Stages, stage)

		switch stage.Status {
		case domain.PipelineStatusFailed, domain.PipelineStatusCancelled:
			if state.FailedStage == "" {
				state.FailedStage = stage.Name
				state.Status = stage.Status
			}
		case domain.PipelineStatusRunning, domain.PipelineStatusWaitingApproval:
			if state.FailedStage == "" {
				state.Status = stage.Status
			}
		case domain.PipelineStatusSucceeded:
			succeeded++
		}
	}
	if state.FailedStage == "" && len(state.Stages) > 0 && succeeded == len(state.Stages) {
		state.Status = domain.PipelineStatusSucceeded
	}
	return state, nil
}

func toStageState(s types.StageState) StageState {
	stage := StageState{Name: aws.ToString(s.StageName), Status: domain.PipelineStatusPending}
	if s.LatestExecution != nil {
		stage.ExecutionID = aws.ToString(s.LatestExecution.PipelineExecutionId)
		stage.Status = stageStatus(s.LatestExecution.Status)
	}

	for _, a := range s.ActionStates {
		action := ActionState{Name: aws.ToString(a.ActionName), Status: domain.PipelineStatusPending}
		if a.LatestExecution != nil {
			action.Status = actionStatus(a.LatestExecution.Status)
			action.Summary = aws.ToString(a.LatestExecution.Summary)
			if action.Status == domain.PipelineStatusRunning && a.LatestExecution.Token != nil {
				action.Status = domain.PipelineStatusWaitingApproval
				action.token = aws.ToString(a.LatestExecution.Token)
			}
		}
		if action.Status == domain.PipelineStatusWaitingApproval && stage.Status == domain.PipelineStatusRunning {
			stage.Status = domain.PipelineStatusWaitingApproval
		}
		stage.Actions = append(stage.Actions, action)
	}
	return stage
}

func stageStatus(s types.StageExecutionStatus) domain.PipelineStatus {
	switch s {
	case types.StageExecutionStatusInProgress, types.StageExecutionStatusStopping:
		return domain.PipelineStatusRunning
	case types.StageExecutionStatusSucceeded:
		return domain.PipelineStatusSucceeded
	case types.StageExecutionStatusFailed:
		return domain.PipelineStatusFailed
	case types.StageExecutionStatusStopped, types.StageExecutionStatusCancelled:
		return domain.PipelineStatusCancelled
	default:
		return domain.PipelineStatusPending
	}
}

func actionStatus(s types.ActionExecutionStatus) domain.PipelineStatus {
	switch s {
	case types.ActionExecutionStatusInProgress:
		return domain.PipelineStatusRunning
	case types.ActionExecutionStatusSucceeded:
		return domain.PipelineStatusSucceeded
	case types.ActionExecutionStatusFailed:
		return domain.PipelineStatusFailed
	case types.ActionExecutionStatusAbandoned:
		return domain.PipelineStatusCancelled
	default:
		return domain.PipelineStatusPending
	}
}

// Approve resolves the pending manual approval of stage/action as approved.
func (c *Client) Approve(ctx context.Context, pipelineName, stageName, actionName, summary string) error {
	return c.putApproval(ctx, pipelineName, stageName, actionName, summary, types.ApprovalStatusApproved)
}

// Reject resolves the pending manual approval of stage/action as rejected,
// which fails the stage and halts promotion to it and every later account.
func (c *Client) Reject(ctx context.Context, pipelineName, stageName, actionName, summary string) error {
	return c.putApproval(ctx, pipelineName, stageName, actionName, summary, types.ApprovalStatusRejected)
}

func (c *Client) putApproval(
	ctx context.Context,
	pipelineName, stageName, actionName, summary string,
	status types.ApprovalStatus,
) error {
	state, err := c.State(ctx, pipelineName)
	if err != nil {
		return err
	}

	token := pendingToken(state, stageName, actionName)
	if token == "" {
		return ferrors.WrapWithContext(ErrApprovalNotPending, ferrors.CodeInvalidInput, "PutApprovalResult",
			map[string]any{"pipeline_name": pipelineName, "stage": stageName, "action": actionName})
	}

	_, err = c.api.PutApprovalResult(ctx, &codepipeline.PutApprovalResultInput{
		PipelineName: aws.String(pipelineName),
		StageName:    aws.String(stageName),
		ActionName:   aws.String(actionName),
		Token:        aws.String(token),
		Result: &types.ApprovalResult{
			Status:  status,
			Summary: aws.String(summary),
		},
	})
	if err != nil {
		return classify(err, "PutApprovalResult", pipelineName)
	}

	if c.logger != nil {
		c.logger.InfoContext(ctx, "approval recorded",
			"pipeline_name", pipelineName,
			"stage", stageName,
			"action", actionName,
			"result", string(status))
	}
	return nil
}

func pendingToken(state *PipelineState, stageName, actionName string) string {
	for _, stage := range state.Stages {
		if stage.Name != stageName {
			continue
		}
		for _, action := range stage.Actions {
			if action.Name == actionName && action.Status == domain.PipelineStatusWaitingApproval {
				return action.token
			}
		}
	}
	return ""
}
