package engine

import (
	"time"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
)

// ActionStatus is the status of one action of a run.
type ActionStatus struct {
	Name    string                `json:"name"`
	Status  domain.PipelineStatus `json:"status"`
	Message string                `json:"message,omitempty"`
}

// StageStatus is the status of one stage of a run.
type StageStatus struct {
	Name    string                `json:"name"`
	Status  domain.PipelineStatus `json:"status"`
	Actions []ActionStatus        `json:"actions"`
}

// RunStatus is the status surface of one execution.
type RunStatus struct {
	ExecutionID  string                `json:"execution_id"`
	PipelineName string                `json:"pipeline_name"`
	Status       domain.PipelineStatus `json:"status"`
	FailedStage  string                `json:"failed_stage,omitempty"`
	Error        string                `json:"error,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   time.Time             `json:"finished_at,omitzero"`
	Stages       []StageStatus         `json:"stages"`
}

func newRunStatus(id, pipeline string, graph []domain.StageDefinition, now time.Time) *RunStatus {
	status := &RunStatus{
		ExecutionID:  id,
		PipelineName: pipeline,
		Status:       domain.PipelineStatusPending,
		StartedAt:    now,
		Stages:       make([]StageStatus, len(graph)),
	}
	for i, stage := range graph {
		actions := make([]ActionStatus, len(stage.Actions))
		for j, a := range stage.Actions {
			actions[j] = ActionStatus{Name: a.Name, Status: domain.PipelineStatusPending}
		}
		status.Stages[i] = StageStatus{Name: stage.Name, Status: domain.PipelineStatusPending, Actions: actions}
	}
	return status
}

func (s *RunStatus) clone() *RunStatus {
	c := *s
	c.Stages = make([]StageStatus, len(s.Stages))
	for i, st := range s.Stages {
		st.Actions = append([]ActionStatus(nil), st.Actions...)
		c.Stages[i] = st
	}
	return &c
}

// Stage returns the status of the named stage.
func (s *RunStatus) Stage(name string) (StageStatus, bool) {
	for _, st := range s.Stages {
		if st.Name == name {
			return st, true
		}
	}
	return StageStatus{}, false
}
