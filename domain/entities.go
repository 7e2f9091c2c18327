package domain

// ChangeEvent is one push to a tracked branch, as consumed by the dispatcher.
// It is immutable and consumed exactly once per dispatch call.
type ChangeEvent struct {
	// RepositoryID identifies the repository. For CodeCommit this is the
	// repository name passed to GetDifferences.
	RepositoryID string `json:"repository_id" yaml:"repository_id"`

	// BeforeRevision is the commit the branch pointed at before the push.
	// Empty when the branch was just created.
	BeforeRevision string `json:"before_revision,omitempty" yaml:"before_revision,omitempty"`

	// AfterRevision is the commit the branch points at after the push.
	AfterRevision string `json:"after_revision" yaml:"after_revision"`

	// ReferenceName is the branch name, e.g. "main".
	ReferenceName string `json:"reference_name" yaml:"reference_name"`

	// ReferenceType is the reference kind, always "branch" for dispatched events.
	ReferenceType string `json:"reference_type" yaml:"reference_type"`

	// Actor identifies who pushed (caller ARN or user name).
	Actor string `json:"actor,omitempty" yaml:"actor,omitempty"`
}

// ReferenceEvent is the inbound repository state-change payload as emitted by
// the version-control service (the "detail" of a CodeCommit Repository State
// Change event).
type ReferenceEvent struct {
	CallerUserArn     string `json:"callerUserArn"`
	CommitID          string `json:"commitId"`
	OldCommitID       string `json:"oldCommitId"`
	Event             string `json:"event"`
	ReferenceFullName string `json:"referenceFullName"`
	ReferenceName     string `json:"referenceName"`
	ReferenceType     string `json:"referenceType"`
	RepositoryID      string `json:"repositoryId"`
	RepositoryName    string `json:"repositoryName"`
}

// FileDiffEntry is one changed file between two revisions. A diff is an
// ordered sequence of entries with no uniqueness guarantee on Path.
type FileDiffEntry struct {
	// Path is the path after the change. Empty for deletions reported without
	// an after blob; an empty path never matches a route.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// BeforePath is the path before the change, when known.
	BeforePath string `json:"before_path,omitempty" yaml:"before_path,omitempty"`

	// ChangeKind describes how the file changed.
	ChangeKind ChangeKind `json:"change_kind" yaml:"change_kind"`
}

// PipelineRoute maps one deliverable component to the repository path
// substrings that should cause its pipeline to run.
type PipelineRoute struct {
	// PipelineName is the execution-service name of the pipeline. Unique among routes.
	PipelineName string `json:"pipeline_name" yaml:"pipeline_name"`

	// WatchedPathPrefixes is the non-empty set of path strings watched by this route.
	WatchedPathPrefixes []string `json:"watched_path_prefixes" yaml:"watched_path_prefixes"`
}

// PipelineExecutionRequest is the fire-and-forget command sent to the
// execution service. The service assigns its own execution id.
type PipelineExecutionRequest struct {
	PipelineName string `json:"pipeline_name" yaml:"pipeline_name"`
}

// Account is one deployment target. The order of an account sequence is the
// deployment order.
type Account struct {
	// Stage is the environment name (dev, staging, prod). Unique within a sequence.
	Stage string `json:"stage" yaml:"stage"`

	// Number is the 12-digit AWS account id.
	Number string `json:"number" yaml:"number"`

	// Region is the AWS region deployed to.
	Region string `json:"region" yaml:"region"`

	// RequiresApproval explicitly gates or un-gates the deploy. When nil the
	// stage-name convention applies: every stage except "dev" is gated.
	RequiresApproval *bool `json:"requires_approval,omitempty" yaml:"requires_approval,omitempty"`
}

// Commands holds the shell commands of each build phase.
type Commands struct {
	PreBuild  []string `json:"pre_build,omitempty" yaml:"pre_build,omitempty"`
	Install   []string `json:"install,omitempty" yaml:"install,omitempty"`
	Build     []string `json:"build,omitempty" yaml:"build,omitempty"`
	PostBuild []string `json:"post_build,omitempty" yaml:"post_build,omitempty"`
}

// PipelineDefinition is the input to stage-graph construction.
type PipelineDefinition struct {
	// Name is the pipeline name; also the route's PipelineName.
	Name string `json:"name" yaml:"name"`

	// Purpose is the deliverable component deployed (e.g. "frontend").
	Purpose string `json:"purpose" yaml:"purpose"`

	// Repository is the source repository name.
	Repository string `json:"repository" yaml:"repository"`

	// Branch is the tracked branch. Defaults to DefaultBranch.
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`

	// Accounts is the ordered rollout sequence.
	Accounts []Account `json:"accounts" yaml:"accounts"`

	// Build holds the Build stage commands.
	Build Commands `json:"build" yaml:"build"`

	// Deploy holds per-account deploy commands. ${STAGE}, ${ACCOUNT},
	// ${REGION} and ${PURPOSE} are expanded for each account.
	Deploy Commands `json:"deploy" yaml:"deploy"`

	// IntegrationTest runs against the freshly deployed environment.
	IntegrationTest []string `json:"integration_test,omitempty" yaml:"integration_test,omitempty"`

	// WatchedPaths are the route prefixes for this pipeline.
	WatchedPaths []string `json:"watched_paths,omitempty" yaml:"watched_paths,omitempty"`
}

// Action is one unit of work inside a stage.
type Action struct {
	// Name is unique within its stage.
	Name string `json:"name" yaml:"name"`

	// Kind selects what the action does.
	Kind ActionKind `json:"kind" yaml:"kind"`

	// RunOrder is the concurrency tier inside the stage. Equal values run
	// concurrently; ascending values run sequentially.
	RunOrder int `json:"run_order" yaml:"run_order"`

	// Account is the deployment target of Deploy and ManualApproval actions.
	Account *Account `json:"account,omitempty" yaml:"account,omitempty"`

	// Branch is the branch fetched by a Source action.
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`

	// Repository is the repository fetched by a Source action.
	Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`

	// Commands are the phase commands of Build and Deploy actions.
	Commands Commands `json:"commands,omitempty" yaml:"commands,omitempty"`

	// InputArtifact names the artifact consumed. Read-only to the action.
	InputArtifact string `json:"input_artifact,omitempty" yaml:"input_artifact,omitempty"`

	// OutputArtifact names the artifact produced.
	OutputArtifact string `json:"output_artifact,omitempty" yaml:"output_artifact,omitempty"`

	// ProjectName is the build project executing a Build or Deploy action.
	ProjectName string `json:"project_name,omitempty" yaml:"project_name,omitempty"`

	// AdditionalInformation is shown to the approver of a ManualApproval action.
	AdditionalInformation string `json:"additional_information,omitempty" yaml:"additional_information,omitempty"`
}

// StageDefinition is an ordered unit of pipeline execution. A stage completes
// only when all its actions succeed.
type StageDefinition struct {
	Name    string   `json:"name" yaml:"name"`
	Actions []Action `json:"actions" yaml:"actions"`
}
