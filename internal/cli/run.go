package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	"github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/executor"
	"github.com/input-output-hk/catalyst-forge-delivery/rollout"
	"github.com/input-output-hk/catalyst-forge-delivery/rollout/engine"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/sts"
)

type runFlags struct {
	sourceDir   string
	remoteURL   string
	workRoot    string
	depth       int
	gitSecret   string
	buildSpec   string
	autoApprove bool
	assumeRole  bool
	policy      string
	output      string
}

func newRunCommand(app *App) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run PIPELINE",
		Short: "Run a pipeline's stage graph locally",
		Long: `Execute a pipeline's stage graph on this machine: fetch the source, run the
build phases, then deploy account by account. Manual approvals are prompted
on stdin unless --auto-approve is set. With --assume-role each deploy runs
with credentials of its target account's deploy role only. With --build-spec
the Build stage runs the phases of a checked-in buildspec file instead of the
configured build commands.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runLocal(cmd, args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.sourceDir, "source-dir", "", "use this directory as the source artifact")
	cmd.Flags().StringVar(&f.remoteURL, "remote-url", "", "clone URL template, %s is replaced by the repository name")
	cmd.Flags().StringVar(&f.workRoot, "work-root", "", "directory holding per-execution checkouts")
	cmd.Flags().IntVar(&f.depth, "depth", 1, "clone depth (0 = full history)")
	cmd.Flags().StringVar(&f.gitSecret, "git-credentials-secret", "", "Secrets Manager secret holding HTTPS git credentials for --remote-url")
	cmd.Flags().StringVar(&f.buildSpec, "build-spec", "", "buildspec file whose phases replace the configured build commands")
	cmd.Flags().BoolVar(&f.autoApprove, "auto-approve", false, "approve every manual approval")
	cmd.Flags().BoolVar(&f.assumeRole, "assume-role", false, "assume each account's deploy role for its deploy")
	cmd.Flags().StringVar(&f.policy, "policy", "default", "approval policy (default, gated, auto)")
	cmd.Flags().StringVarP(&f.output, "output", "o", formatJSON, "output format (json, yaml)")
	cmd.MarkFlagsMutuallyExclusive("source-dir", "remote-url")
	cmd.MarkFlagsOneRequired("source-dir", "remote-url")
	cmd.MarkFlagsMutuallyExclusive("source-dir", "git-credentials-secret")
	return cmd
}

// replaceBuildCommands swaps the commands of the graph's build action.
func replaceBuildCommands(graph []domain.StageDefinition, cmds domain.Commands) error {
	for i := range graph {
		for j := range graph[i].Actions {
			if graph[i].Actions[j].Kind == domain.ActionKindBuild {
				graph[i].Actions[j].Commands = cmds
				return nil
			}
		}
	}
	return errors.New(errors.CodeNotFound, "pipeline has no build action")
}

func (a *App) runLocal(cmd *cobra.Command, pipeline string, f runFlags) error {
	ctx := cmd.Context()
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	policy, err := policyFor(f.policy)
	if err != nil {
		return err
	}
	graph, err := cfg.StageGraph(pipeline, policy)
	if err != nil {
		return err
	}
	if f.buildSpec != "" {
		data, err := util.ReadFile(a.FS, f.buildSpec)
		if err != nil {
			return errors.WrapWithContext(err, errors.CodeConfigLoadFailed, "failed to read buildspec",
				map[string]any{"path": f.buildSpec})
		}
		cmds, err := rollout.ParseBuildSpec(data)
		if err != nil {
			return err
		}
		if err := replaceBuildCommands(graph, cmds); err != nil {
			return err
		}
	}

	source := &engine.SourceRunner{Dir: f.sourceDir, WorkRoot: f.workRoot, ShallowDepth: f.depth}
	if f.remoteURL != "" {
		template := f.remoteURL
		source.RemoteURL = func(repository string) string {
			return strings.ReplaceAll(template, "%s", repository)
		}
	}

	phases := &engine.PhaseRunner{
		Phases: executor.NewPhases(executor.NewShell()),
		Options: []executor.Option{
			executor.WithStdoutWriter(cmd.ErrOrStderr()),
			executor.WithStderrWriter(cmd.ErrOrStderr()),
		},
	}
	if f.assumeRole {
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return err
		}
		r, err := a.retryer()
		if err != nil {
			return err
		}
		phases.Credentials = &engine.STSCredentials{
			Config:  awsCfg,
			Options: []sts.Option{sts.WithLogger(a.logger), sts.WithRetryer(r)},
		}
	}
	if f.gitSecret != "" {
		client, err := a.secretsClient(ctx)
		if err != nil {
			return err
		}
		creds, err := client.GitCredentials(ctx, f.gitSecret)
		if err != nil {
			return err
		}
		source.Auth = &githttp.BasicAuth{Username: creds.Username, Password: creds.Password}
	}

	var approver engine.Approver
	if f.autoApprove {
		approver = engine.ApproverFunc(func(_ context.Context, _ engine.ApprovalRequest) (engine.Decision, error) {
			return engine.Decision{Approved: true, Summary: "auto-approved"}, nil
		})
	} else {
		promptCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		channel := engine.NewChannelApprover(1)
		go promptApprovals(promptCtx, channel, cmd.InOrStdin(), cmd.ErrOrStderr())
		approver = channel
	}

	eng := engine.New(
		engine.WithLogger(a.logger),
		engine.WithApprover(approver),
		engine.WithRunner(domain.ActionKindSource, source),
		engine.WithRunner(domain.ActionKindBuild, phases),
		engine.WithRunner(domain.ActionKindDeploy, phases),
		engine.WithStageHandler(func(ev domain.StageEvent) {
			a.logger.Info("stage transition",
				"pipeline_name", ev.PipelineName,
				"execution_id", ev.ExecutionID,
				"stage", ev.Stage,
				"status", ev.Status)
		}),
	)
	if err := eng.Register(pipeline, graph); err != nil {
		return err
	}

	status, err := eng.Run(ctx, pipeline)
	if err != nil {
		return err
	}
	if err := render(cmd.OutOrStdout(), f.output, status); err != nil {
		return err
	}
	if status.Status != domain.PipelineStatusSucceeded {
		return errors.Newf(errors.CodeStageFailed, "pipeline %s %s at %s: %s",
			pipeline, strings.ToLower(string(status.Status)), status.FailedStage, status.Error)
	}
	return nil
}

// promptApprovals asks on in for every approval announced by approver.
func promptApprovals(ctx context.Context, approver *engine.ChannelApprover, in io.Reader, out io.Writer) {
	lines := bufio.NewScanner(in)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-approver.Requests():
			fmt.Fprintf(out, "Approve %s of %s (%s)? [y/N] ", req.Stage, req.PipelineName, req.Information)
			answer := ""
			if lines.Scan() {
				answer = strings.ToLower(strings.TrimSpace(lines.Text()))
			}
			d := engine.Decision{Approved: answer == "y" || answer == "yes", Summary: fmt.Sprintf("operator answered %q", answer)}
			_ = approver.Resolve(req.ExecutionID, req.Stage, req.Action, d)
		}
	}
}
