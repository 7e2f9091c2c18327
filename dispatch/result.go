package dispatch

import (
	"fmt"
	"strings"

	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// RouteFailure is a matched pipeline whose start request failed.
type RouteFailure struct {
	PipelineName string `json:"pipeline_name"`
	Err          error  `json:"-"`
}

// Error returns the failure message.
func (f RouteFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.PipelineName, f.Err)
}

// Unwrap returns the trigger error.
func (f RouteFailure) Unwrap() error {
	return f.Err
}

// Preview is the outcome of a dispatch that starts nothing.
type Preview struct {
	// ChangedFiles is the number of diff entries considered.
	ChangedFiles int `json:"changed_files"`

	// Matched lists, in route order, the pipelines the event would trigger.
	Matched []string `json:"matched"`
}

// Result is the outcome of one dispatch.
type Result struct {
	// ChangedFiles is the number of diff entries considered.
	ChangedFiles int `json:"changed_files"`

	// Triggered lists, in route order, the pipelines whose start request the
	// execution service accepted. It is never nil.
	Triggered []string `json:"triggered"`

	// Failed lists, in route order, the pipelines whose start request failed.
	Failed []RouteFailure `json:"failed,omitempty"`

	// ExecutionIDs maps triggered pipelines to their execution ids.
	ExecutionIDs map[string]string `json:"execution_ids,omitempty"`
}

// Err returns nil when every matched pipeline was triggered. Otherwise it
// returns a ROUTE_TRIGGER_FAILED error joining every failure.
func (r *Result) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}

	names := make([]string, 0, len(r.Failed))
	causes := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.PipelineName)
		causes = append(causes, f)
	}
	return ferrors.WrapWithContext(ferrors.Join(causes...), ferrors.CodeRouteTriggerFailed,
		fmt.Sprintf("failed to trigger %s", strings.Join(names, ", ")),
		map[string]any{"triggered": r.Triggered})
}
