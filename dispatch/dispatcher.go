package dispatch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// Dispatcher maps change events to pipeline executions.
type Dispatcher struct {
	diffs   DiffProvider
	trigger ExecutionTrigger
	routes  []domain.PipelineRoute
	opts    options
}

// New validates routes and returns a Dispatcher. Routes must have unique,
// non-empty pipeline names and at least one non-empty watched path.
func New(diffs DiffProvider, trigger ExecutionTrigger, routes []domain.PipelineRoute, opts ...Option) (*Dispatcher, error) {
	if diffs == nil || trigger == nil {
		return nil, ferrors.New(ferrors.CodeInvalidInput, "diff provider and execution trigger are required")
	}
	if err := ValidateRoutes(routes); err != nil {
		return nil, err
	}

	o := options{matcher: SubstringMatcher{}}
	for _, opt := range opts {
		opt(&o)
	}

	copied := make([]domain.PipelineRoute, len(routes))
	for i, r := range routes {
		copied[i] = domain.PipelineRoute{
			PipelineName:        r.PipelineName,
			WatchedPathPrefixes: append([]string(nil), r.WatchedPathPrefixes...),
		}
	}
	return &Dispatcher{diffs: diffs, trigger: trigger, routes: copied, opts: o}, nil
}

// ValidateRoutes reports every malformed route as one INVALID_CONFIGURATION
// error.
func ValidateRoutes(routes []domain.PipelineRoute) error {
	var problems []error
	seen := make(map[string]bool, len(routes))
	for i, r := range routes {
		switch {
		case r.PipelineName == "":
			problems = append(problems, fmt.Errorf("route %d: pipeline name is empty", i))
		case seen[r.PipelineName]:
			problems = append(problems, fmt.Errorf("route %d: duplicate pipeline name %q", i, r.PipelineName))
		}
		seen[r.PipelineName] = true

		if len(r.WatchedPathPrefixes) == 0 {
			problems = append(problems, fmt.Errorf("route %q: no watched paths", r.PipelineName))
		}
		for _, p := range r.WatchedPathPrefixes {
			if p == "" {
				problems = append(problems, fmt.Errorf("route %q: empty watched path", r.PipelineName))
			}
		}
	}
	if len(problems) > 0 {
		return ferrors.Wrap(ferrors.Join(problems...), ferrors.CodeInvalidConfig, "invalid pipeline routes")
	}
	return nil
}

// Routes returns a copy of the configured routes.
func (d *Dispatcher) Routes() []domain.PipelineRoute {
	return append([]domain.PipelineRoute(nil), d.routes...)
}

// Plan reports the pipelines event would trigger without starting any.
func (d *Dispatcher) Plan(ctx context.Context, event domain.ChangeEvent) (*Preview, error) {
	entries, err := d.differences(ctx, event)
	if err != nil {
		return nil, err
	}
	return &Preview{ChangedFiles: len(entries), Matched: d.Match(entries)}, nil
}

// Match returns, in route order, the names of the routes matched by entries.
// Each name appears at most once.
func (d *Dispatcher) Match(entries []domain.FileDiffEntry) []string {
	return matchRoutes(d.opts.matcher, d.routes, entries)
}

func matchRoutes(m Matcher, routes []domain.PipelineRoute, entries []domain.FileDiffEntry) []string {
	matched := []string{}
	seen := make(map[string]bool)
	for _, route := range routes {
		if seen[route.PipelineName] {
			continue
		}
		if routeMatches(m, route, entries) {
			seen[route.PipelineName] = true
			matched = append(matched, route.PipelineName)
		}
	}
	return matched
}

func routeMatches(m Matcher, route domain.PipelineRoute, entries []domain.FileDiffEntry) bool {
	for _, entry := range entries {
		for _, watched := range route.WatchedPathPrefixes {
			if m.Match(entry.Path, watched) {
				return true
			}
		}
	}
	return false
}

// Dispatch starts one execution of every pipeline whose route matches the
// files changed by event.
//
// If the diff cannot be computed Dispatch returns a DIFF_UNAVAILABLE error
// and starts nothing. Otherwise every matched pipeline is attempted; a failed
// start request is recorded in Result.Failed and never stops the others, and
// the returned error is nil.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.ChangeEvent) (*Result, error) {
	entries, err := d.differences(ctx, event)
	if err != nil {
		return nil, err
	}

	matched := d.Match(entries)
	result := &Result{
		ChangedFiles: len(entries),
		Triggered:    make([]string, 0, len(matched)),
		ExecutionIDs: make(map[string]string, len(matched)),
	}
	if len(matched) == 0 {
		d.logDebug(ctx, "no pipeline matched", "repository", event.RepositoryID, "changed_files", len(entries))
		d.emit(event, result)
		return result, nil
	}

	ids := make([]string, len(matched))
	errs := make([]error, len(matched))

	var g errgroup.Group
	if d.opts.concurrency > 0 {
		g.SetLimit(d.opts.concurrency)
	}
	for i, name := range matched {
		g.Go(func() error {
			ids[i], errs[i] = d.trigger.StartExecution(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	for i, name := range matched {
		if errs[i] != nil {
			d.logError(ctx, "failed to trigger pipeline", "pipeline_name", name, "error", errs[i])
			result.Failed = append(result.Failed, RouteFailure{PipelineName: name, Err: errs[i]})
			continue
		}
		result.Triggered = append(result.Triggered, name)
		result.ExecutionIDs[name] = ids[i]
	}

	if d.opts.logger != nil {
		d.opts.logger.InfoContext(ctx, "dispatch completed",
			"repository", event.RepositoryID,
			"after", event.AfterRevision,
			"changed_files", len(entries),
			"triggered", result.Triggered,
			"failed", len(result.Failed))
	}
	d.emit(event, result)
	return result, nil
}

func (d *Dispatcher) differences(ctx context.Context, event domain.ChangeEvent) ([]domain.FileDiffEntry, error) {
	entries, err := d.diffs.GetDifferences(ctx, event.RepositoryID, event.BeforeRevision, event.AfterRevision)
	if err != nil {
		d.logError(ctx, "diff unavailable",
			"repository", event.RepositoryID,
			"before", event.BeforeRevision,
			"after", event.AfterRevision,
			"error", err)
		return nil, ferrors.WrapWithContext(err, ferrors.CodeDiffUnavailable,
			"cannot compute changed files",
			map[string]any{
				"repository": event.RepositoryID,
				"before":     event.BeforeRevision,
				"after":      event.AfterRevision,
				"cause_code": ferrors.GetCode(err).String(),
			})
	}
	return entries, nil
}

func (d *Dispatcher) emit(event domain.ChangeEvent, result *Result) {
	if d.opts.onDispatch == nil {
		return
	}
	ev := domain.DispatchEvent{
		Timestamp:     time.Now().UTC(),
		RepositoryID:  event.RepositoryID,
		AfterRevision: event.AfterRevision,
		ChangedFiles:  result.ChangedFiles,
		Triggered:     append([]string{}, result.Triggered...),
	}
	if len(result.Failed) > 0 {
		ev.Failed = make(map[string]string, len(result.Failed))
		for _, f := range result.Failed {
			ev.Failed[f.PipelineName] = f.Err.Error()
		}
	}
	d.opts.onDispatch(ev)
}

func (d *Dispatcher) logDebug(ctx context.Context, msg string, args ...any) {
	if d.opts.logger != nil {
		d.opts.logger.DebugContext(ctx, msg, args...)
	}
}

func (d *Dispatcher) logError(ctx context.Context, msg string, args ...any) {
	if d.opts.logger != nil {
		d.opts.logger.ErrorContext(ctx, msg, args...)
	}
}
