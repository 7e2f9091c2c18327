package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	"github.com/input-output-hk/catalyst-forge-delivery/executor"
)

type fakePhases struct {
	cmds []domain.Commands
	opts *executor.Options
	err  error
}

func (f *fakePhases) RunPhases(_ context.Context, cmds domain.Commands, opts ...executor.Option) (*executor.Report, error) {
	f.cmds = append(f.cmds, cmds)
	f.opts = &executor.Options{}
	for _, opt := range opts {
		opt(f.opts)
	}
	return &executor.Report{}, f.err
}

type fakeCredentials struct {
	accounts []string
	err      error
}

func (f *fakeCredentials) Credentials(_ context.Context, account domain.Account) ([]string, error) {
	f.accounts = append(f.accounts, account.Number)
	if f.err != nil {
		return nil, f.err
	}
	return []string{"AWS_ACCESS_KEY_ID=AKIA-" + account.Number, "AWS_REGION=" + account.Region}, nil
}

func newRun() *Run {
	run := &Run{ExecutionID: "exec-1", PipelineName: pipeline, artifacts: map[string]string{}}
	run.SetArtifact("SourceArtifact", "/work/src")
	return run
}

func TestPhaseRunnerDeployUsesOnlyTargetAccount(t *testing.T) {
	phases := &fakePhases{}
	creds := &fakeCredentials{}
	runner := &PhaseRunner{Phases: phases, Credentials: creds}

	account := domain.Account{Stage: "staging", Number: "222222222222", Region: "eu-central-1"}
	action := domain.Action{
		Name:          "Deploy-STAGING",
		Kind:          domain.ActionKindDeploy,
		Account:       &account,
		InputArtifact: "SourceArtifact",
		Commands:      domain.Commands{Build: []string{"npx sst deploy --stage staging"}},
	}

	require.NoError(t, runner.Run(context.Background(), newRun(), action))
	assert.Equal(t, []string{"222222222222"}, creds.accounts)
	assert.Equal(t, action.Commands, phases.cmds[0])
	assert.Equal(t, "/work/src", phases.opts.WorkingDir)
	assert.Equal(t, "AKIA-222222222222", phases.opts.Env["AWS_ACCESS_KEY_ID"])
	assert.Equal(t, "staging", phases.opts.Env["STAGE"])
	assert.Contains(t, phases.opts.DropInherited, "AWS_")
}

func TestPhaseRunnerBuildHasNoCredentials(t *testing.T) {
	phases := &fakePhases{}
	creds := &fakeCredentials{}
	runner := &PhaseRunner{Phases: phases, Credentials: creds}

	action := domain.Action{Name: "Build", Kind: domain.ActionKindBuild, InputArtifact: "SourceArtifact"}
	require.NoError(t, runner.Run(context.Background(), newRun(), action))
	assert.Empty(t, creds.accounts)
	assert.NotContains(t, phases.opts.Env, "AWS_ACCESS_KEY_ID")
}

func TestPhaseRunnerErrors(t *testing.T) {
	account := domain.Account{Stage: "prod", Number: "333333333333", Region: "eu-central-1"}

	runner := &PhaseRunner{Phases: &fakePhases{}, Credentials: &fakeCredentials{err: errors.New("denied")}}
	err := runner.Run(context.Background(), newRun(), domain.Action{Kind: domain.ActionKindDeploy, Account: &account})
	assert.EqualError(t, err, "denied")

	runner = &PhaseRunner{Phases: &fakePhases{}}
	err = runner.Run(context.Background(), newRun(), domain.Action{Kind: domain.ActionKindBuild, InputArtifact: "Missing"})
	assert.Error(t, err)

	err = runner.Run(context.Background(), newRun(), domain.Action{Kind: domain.ActionKindDeploy})
	assert.Error(t, err)

	runner = &PhaseRunner{Phases: &fakePhases{err: errors.New("exit status 1")}}
	err = runner.Run(context.Background(), newRun(), domain.Action{Kind: domain.ActionKindDeploy, Account: &account})
	assert.EqualError(t, err, "exit status 1")
}

func TestSourceRunnerWithDirectory(t *testing.T) {
	run := &Run{ExecutionID: "exec-1", artifacts: map[string]string{}}
	runner := &SourceRunner{Dir: "/checkout"}

	require.NoError(t, runner.Run(context.Background(), run, domain.Action{OutputArtifact: "SourceArtifact"}))
	dir, ok := run.Artifact("SourceArtifact")
	require.True(t, ok)
	assert.Equal(t, "/checkout", dir)
}

func TestSourceRunnerClonesBranch(t *testing.T) {
	remote := t.TempDir()
	repo, err := gogit.PlainInitWithOptions(remote, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.Main},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(remote, "sst.config.ts"), []byte("export default {}"), 0o600))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("sst.config.ts")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	run := &Run{ExecutionID: "exec-1", artifacts: map[string]string{}}
	runner := &SourceRunner{
		RemoteURL: func(string) string { return remote },
		WorkRoot:  t.TempDir(),
	}
	action := domain.Action{
		Kind:           domain.ActionKindSource,
		Repository:     "aws-cdk-pipeline-demo",
		Branch:         "main",
		OutputArtifact: "SourceArtifact",
	}
	require.NoError(t, runner.Run(context.Background(), run, action))

	dir, ok := run.Artifact("SourceArtifact")
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, "sst.config.ts"))

	rev, _ := run.Artifact("SourceArtifact.revision")
	assert.Equal(t, hash.String(), rev)

	action.Branch = "missing"
	run = &Run{ExecutionID: "exec-2", artifacts: map[string]string{}}
	assert.Error(t, runner.Run(context.Background(), run, action))
}

func TestSourceRunnerNeedsASource(t *testing.T) {
	run := &Run{ExecutionID: "exec-1", artifacts: map[string]string{}}
	assert.Error(t, (&SourceRunner{}).Run(context.Background(), run, domain.Action{}))
}

func TestChannelApproverResolveWithoutPending(t *testing.T) {
	a := NewChannelApprover(0)
	assert.ErrorIs(t, a.Resolve("exec-1", "Deploy-PROD", "ManualApproval", Decision{Approved: true}), ErrNoPendingApproval)
}
