package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/rollout"
)

// ErrExecutionNotFound is returned for unknown execution ids.
var ErrExecutionNotFound = errors.New("execution not found")

// ActionRunner performs one Source, Build or Deploy action.
type ActionRunner interface {
	Run(ctx context.Context, run *Run, action domain.Action) error
}

// ActionRunnerFunc adapts a function to ActionRunner.
type ActionRunnerFunc func(ctx context.Context, run *Run, action domain.Action) error

// Run calls f(ctx, run, action).
func (f ActionRunnerFunc) Run(ctx context.Context, run *Run, action domain.Action) error {
	return f(ctx, run, action)
}

// Run is the per-execution context shared by the actions of one run.
type Run struct {
	ExecutionID  string
	PipelineName string

	mu        sync.RWMutex
	artifacts map[string]string
}

// SetArtifact records where an action placed a named artifact.
func (r *Run) SetArtifact(name, location string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[name] = location
}

// Artifact returns the location of a named artifact.
func (r *Run) Artifact(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.artifacts[name]
	return loc, ok
}

type execution struct {
	status *RunStatus
	done   chan struct{}
}

// Engine executes registered stage graphs.
type Engine struct {
	opts options

	mu         sync.Mutex
	pipelines  map[string][]domain.StageDefinition
	executions map[string]*execution
}

// New returns an engine with no registered pipelines.
func New(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		opts:       o,
		pipelines:  make(map[string][]domain.StageDefinition),
		executions: make(map[string]*execution),
	}
}

// Register validates graph and stores it under name, replacing any earlier
// graph of that name. Running executions keep the graph they started with.
func (e *Engine) Register(name string, graph []domain.StageDefinition) error {
	if name == "" {
		return ferrors.New(ferrors.CodeInvalidInput, "pipeline name cannot be empty")
	}
	if err := rollout.ValidateGraph(graph); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pipelines[name] = slices.Clone(graph)
	return nil
}

// StartExecution starts a run of the named pipeline in the background and
// returns its execution id. The run outlives ctx's cancellation but keeps its
// values.
func (e *Engine) StartExecution(ctx context.Context, pipelineName string) (string, error) {
	exec, graph, err := e.start(pipelineName)
	if err != nil {
		return "", err
	}
	go e.execute(context.WithoutCancel(ctx), exec, graph)
	return exec.status.ExecutionID, nil
}

// Run executes the named pipeline and returns its final status. Cancelling
// ctx cancels the run.
func (e *Engine) Run(ctx context.Context, pipelineName string) (*RunStatus, error) {
	exec, graph, err := e.start(pipelineName)
	if err != nil {
		return nil, err
	}
	e.execute(ctx, exec, graph)
	return e.Status(exec.status.ExecutionID)
}

// Status returns a snapshot of an execution.
func (e *Engine) Status(executionID string) (*RunStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	exec, ok := e.executions[executionID]
	if !ok {
		return nil, ferrors.WrapWithContext(ErrExecutionNotFound, ferrors.CodeNotFound, "status",
			map[string]any{"execution_id": executionID})
	}
	return exec.status.clone(), nil
}

// Wait blocks until an execution finishes or ctx ends.
func (e *Engine) Wait(ctx context.Context, executionID string) (*RunStatus, error) {
	e.mu.Lock()
	exec, ok := e.executions[executionID]
	e.mu.Unlock()
	if !ok {
		return nil, ferrors.WrapWithContext(ErrExecutionNotFound, ferrors.CodeNotFound, "wait",
			map[string]any{"execution_id": executionID})
	}

	select {
	case <-exec.done:
		return e.Status(executionID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) start(pipelineName string) (*execution, []domain.StageDefinition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	graph, ok := e.pipelines[pipelineName]
	if !ok {
		return nil, nil, ferrors.Newf(ferrors.CodeNotFound, "pipeline %q is not registered", pipelineName)
	}

	id := e.opts.newID()
	exec := &execution{
		status: newRunStatus(id, pipelineName, graph, time.Now().UTC()),
		done:   make(chan struct{}),
	}
	e.executions[id] = exec
	return exec, graph, nil
}

func (e *Engine) execute(ctx context.Context, exec *execution, graph []domain.StageDefinition) {
	defer close(exec.done)

	id := exec.status.ExecutionID
	pipeline := exec.status.PipelineName
	run := &Run{ExecutionID: id, PipelineName: pipeline, artifacts: make(map[string]string)}

	e.update(exec, func(s *RunStatus) { s.Status = domain.PipelineStatusRunning })
	if e.opts.logger != nil {
		e.opts.logger.InfoContext(ctx, "execution started", "pipeline_name", pipeline, "execution_id", id)
	}

	for i, stage := range graph {
		e.setStage(exec, i, domain.PipelineStatusRunning, "")

		if err := e.runStage(ctx, exec, run, i, stage); err != nil {
			status := domain.PipelineStatusFailed
			if ctx.Err() != nil {
				status = domain.PipelineStatusCancelled
			}
			e.setStage(exec, i, status, err.Error())
			e.update(exec, func(s *RunStatus) {
				s.Status = status
				s.FailedStage = stage.Name
				s.Error = err.Error()
				s.FinishedAt = time.Now().UTC()
			})
			if e.opts.logger != nil {
				e.opts.logger.ErrorContext(ctx, "execution halted",
					"pipeline_name", pipeline,
					"execution_id", id,
					"stage", stage.Name,
					"error", err)
			}
			return
		}
		e.setStage(exec, i, domain.PipelineStatusSucceeded, "")
	}

	e.update(exec, func(s *RunStatus) {
		s.Status = domain.PipelineStatusSucceeded
		s.FinishedAt = time.Now().UTC()
	})
	if e.opts.logger != nil {
		e.opts.logger.InfoContext(ctx, "execution succeeded", "pipeline_name", pipeline, "execution_id", id)
	}
}

// runStage runs the actions of a stage tier by tier in ascending run order.
func (e *Engine) runStage(ctx context.Context, exec *execution, run *Run, idx int, stage domain.StageDefinition) error {
	for _, tier := range tiers(stage.Actions) {
		g, gctx := errgroup.WithContext(ctx)
		for _, ai := range tier {
			action := stage.Actions[ai]
			g.Go(func() error {
				e.setAction(exec, idx, ai, domain.PipelineStatusRunning, "")
				if err := e.runAction(gctx, exec, run, stage, action, idx, ai); err != nil {
					e.setAction(exec, idx, ai, domain.PipelineStatusFailed, err.Error())
					return err
				}
				e.setAction(exec, idx, ai, domain.PipelineStatusSucceeded, "")
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runAction(
	ctx context.Context,
	exec *execution,
	run *Run,
	stage domain.StageDefinition,
	action domain.Action,
	stageIdx, actionIdx int,
) error {
	details := map[string]any{"stage": stage.Name, "action": action.Name}

	if action.Kind == domain.ActionKindManualApproval {
		e.setAction(exec, stageIdx, actionIdx, domain.PipelineStatusWaitingApproval, action.AdditionalInformation)
		e.update(exec, func(s *RunStatus) { s.Status = domain.PipelineStatusWaitingApproval })
		defer e.update(exec, func(s *RunStatus) { s.Status = domain.PipelineStatusRunning })

		if e.opts.approver == nil {
			return ferrors.WrapWithContext(errors.New("no approver configured"), ferrors.CodeApprovalRejected,
				"approval rejected", details)
		}
		d, err := e.opts.approver.Await(ctx, ApprovalRequest{
			ExecutionID:  run.ExecutionID,
			PipelineName: run.PipelineName,
			Stage:        stage.Name,
			Action:       action.Name,
			Information:  action.AdditionalInformation,
		})
		if err != nil {
			return ferrors.WrapWithContext(err, ferrors.CodeStageFailed, "approval not received", details)
		}
		if !d.Approved {
			return ferrors.WrapWithContext(fmt.Errorf("rejected: %s", d.Summary), ferrors.CodeApprovalRejected,
				"approval rejected", details)
		}
		return nil
	}

	runner, ok := e.opts.runners[action.Kind]
	if !ok {
		return ferrors.WrapWithContext(fmt.Errorf("no runner for %s actions", action.Kind),
			ferrors.CodeInvalidConfig, "cannot run action", details)
	}
	if err := runner.Run(ctx, run, action); err != nil {
		return ferrors.WrapWithContext(err, ferrors.CodeStageFailed, "action failed", details)
	}
	return nil
}

// tiers groups action indexes by run order, ascending.
func tiers(actions []domain.Action) [][]int {
	orders := make([]int, 0, len(actions))
	byOrder := make(map[int][]int)
	for i, a := range actions {
		if _, ok := byOrder[a.RunOrder]; !ok {
			orders = append(orders, a.RunOrder)
		}
		byOrder[a.RunOrder] = append(byOrder[a.RunOrder], i)
	}
	slices.Sort(orders)

	out := make([][]int, len(orders))
	for i, o := range orders {
		out[i] = byOrder[o]
	}
	return out
}

func (e *Engine) update(exec *execution, fn func(*RunStatus)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(exec.status)
}

func (e *Engine) setStage(exec *execution, idx int, status domain.PipelineStatus, msg string) {
	e.mu.Lock()
	exec.status.Stages[idx].Status = status
	ev := domain.StageEvent{
		ExecutionID:  exec.status.ExecutionID,
		PipelineName: exec.status.PipelineName,
		Stage:        exec.status.Stages[idx].Name,
		Status:       status,
		Timestamp:    time.Now().UTC(),
		Message:      msg,
	}
	e.mu.Unlock()

	if e.opts.onStage != nil {
		e.opts.onStage(ev)
	}
}

func (e *Engine) setAction(exec *execution, stageIdx, actionIdx int, status domain.PipelineStatus, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a := &exec.status.Stages[stageIdx].Actions[actionIdx]
	a.Status = status
	a.Message = msg
}
