package domain

import "time"

// DispatchEvent is emitted after a dispatch call, summarizing its outcome.
type DispatchEvent struct {
	// Timestamp is when the dispatch completed.
	Timestamp time.Time `json:"timestamp"`

	// RepositoryID is the repository of the change event.
	RepositoryID string `json:"repository_id"`

	// AfterRevision is the commit the dispatch was computed for.
	AfterRevision string `json:"after_revision"`

	// ChangedFiles is the number of diff entries considered.
	ChangedFiles int `json:"changed_files"`

	// Triggered lists pipelines whose start request was accepted.
	Triggered []string `json:"triggered"`

	// Failed maps pipeline names to the trigger error message.
	Failed map[string]string `json:"failed,omitempty"`
}

// StageEvent is emitted whenever a stage of a pipeline run changes status.
type StageEvent struct {
	// ExecutionID identifies the pipeline run.
	ExecutionID string `json:"execution_id"`

	// PipelineName is the pipeline the run belongs to.
	PipelineName string `json:"pipeline_name"`

	// Stage is the stage name.
	Stage string `json:"stage"`

	// Status is the new stage status.
	Status PipelineStatus `json:"status"`

	// Timestamp is when the transition happened.
	Timestamp time.Time `json:"timestamp"`

	// Message carries the failure reason, if any.
	Message string `json:"message,omitempty"`
}
