package domain

// ChangeKind describes how a file changed between two revisions.
// The values match the change types reported by AWS CodeCommit.
type ChangeKind string

const (
	// ChangeKindAdded indicates the file was added.
	ChangeKindAdded ChangeKind = "A"

	// ChangeKindModified indicates the file content changed.
	ChangeKindModified ChangeKind = "M"

	// ChangeKindDeleted indicates the file was removed.
	ChangeKindDeleted ChangeKind = "D"

	// ChangeKindRenamed indicates the file moved. Some providers report a
	// rename as a delete plus an add instead.
	ChangeKindRenamed ChangeKind = "R"
)

// String returns the string representation of the ChangeKind.
func (k ChangeKind) String() string {
	return string(k)
}

// ActionKind identifies what a pipeline action does.
type ActionKind string

const (
	// ActionKindSource fetches the tracked branch and emits the source artifact.
	ActionKindSource ActionKind = "SOURCE"

	// ActionKindBuild runs the install, build and post-build commands.
	ActionKindBuild ActionKind = "BUILD"

	// ActionKindManualApproval blocks until an operator approves or rejects.
	ActionKindManualApproval ActionKind = "MANUAL_APPROVAL"

	// ActionKindDeploy assumes the account deployment role, deploys and runs
	// the integration tests.
	ActionKindDeploy ActionKind = "DEPLOY"
)

// String returns the string representation of the ActionKind.
func (k ActionKind) String() string {
	return string(k)
}

// PipelineStatus represents the execution status of a pipeline run, stage or action.
type PipelineStatus string

const (
	// PipelineStatusPending indicates execution has not started.
	PipelineStatusPending PipelineStatus = "PENDING"

	// PipelineStatusRunning indicates execution is in progress.
	PipelineStatusRunning PipelineStatus = "RUNNING"

	// PipelineStatusWaitingApproval indicates a manual approval action is pending.
	PipelineStatusWaitingApproval PipelineStatus = "WAITING_APPROVAL"

	// PipelineStatusSucceeded indicates execution completed successfully.
	PipelineStatusSucceeded PipelineStatus = "SUCCEEDED"

	// PipelineStatusFailed indicates execution halted on a failure. Failure is
	// terminal: there is no automatic retry or rollback.
	PipelineStatusFailed PipelineStatus = "FAILED"

	// PipelineStatusCancelled indicates execution was cancelled before completion.
	PipelineStatusCancelled PipelineStatus = "CANCELLED"
)

// String returns the string representation of the PipelineStatus.
func (s PipelineStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transitions can happen from s.
func (s PipelineStatus) Terminal() bool {
	switch s {
	case PipelineStatusSucceeded, PipelineStatusFailed, PipelineStatusCancelled:
		return true
	default:
		return false
	}
}

// Reference event names delivered by the version-control service.
const (
	ReferenceCreated = "referenceCreated"
	ReferenceUpdated = "referenceUpdated"
	ReferenceDeleted = "referenceDeleted"
)

// ReferenceTypeBranch is the only reference type the dispatcher consumes.
const ReferenceTypeBranch = "branch"

// DefaultBranch is the branch a pipeline tracks when none is configured.
const DefaultBranch = "main"

// DevStage is the account stage that, by convention, deploys without approval.
const DevStage = "dev"
