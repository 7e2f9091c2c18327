package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-delivery/config"
	"github.com/input-output-hk/catalyst-forge-delivery/dispatch"
	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	"github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/git"
)

type dispatchFlags struct {
	before       string
	after        string
	actor        string
	eventFile    string
	repoDir      string
	dryRun       bool
	segmentMatch bool
	output       string
	ignorePaths  []string
	ignoreExts   []string
}

// dispatchReport is the printed outcome of a dispatch.
type dispatchReport struct {
	RepositoryID  string            `json:"repository_id" yaml:"repository_id"`
	AfterRevision string            `json:"after_revision" yaml:"after_revision"`
	DryRun        bool              `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Skipped       string            `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	ChangedFiles  int               `json:"changed_files" yaml:"changed_files"`
	Matched       []string          `json:"matched,omitempty" yaml:"matched,omitempty"`
	Triggered     []string          `json:"triggered" yaml:"triggered"`
	ExecutionIDs  map[string]string `json:"execution_ids,omitempty" yaml:"execution_ids,omitempty"`
	Failed        map[string]string `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// planOnly refuses to start executions.
type planOnly struct{}

func (planOnly) StartExecution(context.Context, string) (string, error) {
	return "", errors.New(errors.CodeInvalidInput, "dry run does not start executions")
}

func newDispatchCommand(app *App) *cobra.Command {
	var f dispatchFlags

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Trigger the pipelines whose watched paths changed",
		Long: `Compute the files changed between two revisions and start every pipeline
with a watched path contained in one of the changed paths.

The diff comes from CodeCommit unless --repo-dir points at a local clone.
--event reads a CodeCommit reference state-change payload instead of
--before/--after. Events that are not branch updates of the watched branch
are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runDispatch(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.before, "before", "", "revision before the push (empty for a new branch)")
	cmd.Flags().StringVar(&f.after, "after", "", "revision after the push")
	cmd.Flags().StringVar(&f.actor, "actor", "", "who pushed")
	cmd.Flags().StringVar(&f.eventFile, "event", "", "reference state-change event file (JSON)")
	cmd.Flags().StringVar(&f.repoDir, "repo-dir", "", "compute the diff from a local repository")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print matched pipelines without starting them")
	cmd.Flags().BoolVar(&f.segmentMatch, "segment-match", false, "match watched paths on path segment boundaries")
	cmd.Flags().StringVarP(&f.output, "output", "o", formatJSON, "output format (json, yaml)")
	cmd.Flags().StringSliceVar(&f.ignorePaths, "ignore-path", nil, "with --repo-dir, drop changes under these prefixes")
	cmd.Flags().StringSliceVar(&f.ignoreExts, "ignore-ext", nil, "with --repo-dir, drop changes to files with these extensions")
	cmd.MarkFlagsMutuallyExclusive("event", "after")
	cmd.MarkFlagsOneRequired("event", "after")
	return cmd
}

func (a *App) runDispatch(cmd *cobra.Command, f dispatchFlags) error {
	ctx := cmd.Context()
	s, err := a.settings()
	if err != nil {
		return err
	}
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}

	event, skipped, err := a.changeEvent(cfg, f)
	if err != nil {
		return err
	}
	report := dispatchReport{
		RepositoryID:  event.RepositoryID,
		AfterRevision: event.AfterRevision,
		DryRun:        f.dryRun,
		Triggered:     []string{},
	}
	if skipped != "" {
		report.Skipped = skipped
		return render(cmd.OutOrStdout(), f.output, report)
	}

	diffs, err := a.diffProvider(ctx, cfg, f)
	if err != nil {
		return err
	}

	var trigger dispatch.ExecutionTrigger = planOnly{}
	if !f.dryRun {
		client, err := a.pipelineClient(ctx)
		if err != nil {
			return err
		}
		trigger = client
	}

	opts := []dispatch.Option{
		dispatch.WithLogger(a.logger),
		dispatch.WithConcurrency(s.Concurrency),
	}
	if f.segmentMatch {
		opts = append(opts, dispatch.WithMatcher(dispatch.SegmentMatcher{}))
	}
	d, err := dispatch.New(diffs, trigger, cfg.Routes(), opts...)
	if err != nil {
		return err
	}

	if f.dryRun {
		planned, err := d.Plan(ctx, event)
		if err != nil {
			return err
		}
		report.ChangedFiles = planned.ChangedFiles
		report.Matched = planned.Matched
		return render(cmd.OutOrStdout(), f.output, report)
	}

	result, err := d.Dispatch(ctx, event)
	if err != nil {
		return err
	}
	report.ChangedFiles = result.ChangedFiles
	report.Triggered = result.Triggered
	report.ExecutionIDs = result.ExecutionIDs
	if len(result.Failed) > 0 {
		report.Failed = make(map[string]string, len(result.Failed))
		for _, rf := range result.Failed {
			report.Failed[rf.PipelineName] = rf.Err.Error()
		}
	}
	if err := render(cmd.OutOrStdout(), f.output, report); err != nil {
		return err
	}
	return result.Err()
}

// changeEvent builds the event to dispatch. A non-empty reason means the
// event is filtered out.
func (a *App) changeEvent(cfg *config.DeliveryConfig, f dispatchFlags) (domain.ChangeEvent, string, error) {
	if f.eventFile == "" {
		return domain.ChangeEvent{
			RepositoryID:   cfg.Repository,
			BeforeRevision: f.before,
			AfterRevision:  f.after,
			ReferenceName:  cfg.Branch,
			ReferenceType:  domain.ReferenceTypeBranch,
			Actor:          f.actor,
		}, "", nil
	}

	data, err := util.ReadFile(a.FS, f.eventFile)
	if err != nil {
		return domain.ChangeEvent{}, "", errors.WrapWithContext(err, errors.CodeInvalidInput,
			"failed to read event", map[string]any{"path": f.eventFile})
	}
	var ref domain.ReferenceEvent
	if err := json.Unmarshal(data, &ref); err != nil {
		return domain.ChangeEvent{}, "", errors.WrapWithContext(err, errors.CodeInvalidInput,
			"failed to decode event", map[string]any{"path": f.eventFile})
	}

	event := domain.ChangeEventFromReferenceEvent(ref)
	if !domain.IsDispatchable(ref, cfg.Branch) {
		return event, fmt.Sprintf("%s of %s %s is not dispatched", ref.Event, ref.ReferenceType, ref.ReferenceName), nil
	}
	return event, "", nil
}

func (a *App) diffProvider(ctx context.Context, cfg *config.DeliveryConfig, f dispatchFlags) (dispatch.DiffProvider, error) {
	if f.repoDir == "" {
		if len(f.ignorePaths) > 0 || len(f.ignoreExts) > 0 {
			return nil, errors.New(errors.CodeInvalidInput, "--ignore-path and --ignore-ext need --repo-dir")
		}
		return a.commitClient(ctx)
	}

	repo, err := git.Open(ctx, &git.Options{FS: osfs.New(f.repoDir)})
	if err != nil {
		return nil, err
	}

	var filters []git.ChangeFilter
	for _, prefix := range f.ignorePaths {
		filters = append(filters, git.ExcludePathPrefixFilter(prefix))
	}
	if len(f.ignoreExts) > 0 {
		filters = append(filters, git.NotFilter(git.ExtensionFilter(f.ignoreExts...)))
	}
	return git.NewProvider(cfg.Repository, repo, filters...), nil
}
