package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/executor"
	"github.com/input-output-hk/catalyst-forge-delivery/git"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/sts"
)

// SourceRunner fetches the tracked branch and publishes it as the action's
// output artifact.
type SourceRunner struct {
	// Dir, when set, is used as the source artifact instead of cloning.
	Dir string

	// RemoteURL maps a repository name to a clone URL.
	RemoteURL func(repository string) string

	// WorkRoot holds one checkout per execution. Defaults to os.TempDir().
	WorkRoot string

	// ShallowDepth limits clone depth when > 0.
	ShallowDepth int

	// Auth authenticates clones. Nil clones anonymously.
	Auth transport.AuthMethod
}

// Run implements ActionRunner.
func (s *SourceRunner) Run(ctx context.Context, run *Run, action domain.Action) error {
	if s.Dir != "" {
		run.SetArtifact(action.OutputArtifact, s.Dir)
		return nil
	}
	if s.RemoteURL == nil {
		return ferrors.New(ferrors.CodeInvalidConfig, "source runner needs a directory or a remote URL")
	}

	root := s.WorkRoot
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, run.ExecutionID, action.OutputArtifact)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create checkout directory: %w", err)
	}

	repo, err := git.Clone(ctx, s.RemoteURL(action.Repository), action.Branch, &git.Options{
		FS:           osfs.New(dir),
		ShallowDepth: s.ShallowDepth,
		Auth:         s.Auth,
	})
	if err != nil {
		return err
	}
	head, err := repo.Head()
	if err != nil {
		return err
	}

	run.SetArtifact(action.OutputArtifact, dir)
	run.SetArtifact(action.OutputArtifact+".revision", head)
	return nil
}

// CredentialSource returns the environment carrying credentials for one
// account.
type CredentialSource interface {
	Credentials(ctx context.Context, account domain.Account) ([]string, error)
}

// STSCredentials assumes each account's deploy role through STS.
type STSCredentials struct {
	Config  aws.Config
	Options []sts.Option
}

// Credentials implements CredentialSource.
func (c *STSCredentials) Credentials(ctx context.Context, account domain.Account) ([]string, error) {
	client, err := sts.NewClientWithConfig(&c.Config, account, c.Options...)
	if err != nil {
		return nil, err
	}
	creds, err := client.AssumeRole(ctx, client.RoleArn(domain.DeployRoleName))
	if err != nil {
		return nil, err
	}
	return creds.Env(), nil
}

// PhaseRunner runs the buildspec phases of Build and Deploy actions inside
// their input artifact.
type PhaseRunner struct {
	Phases executor.PhaseRunner

	// Credentials, when set, supplies the target account's credentials to
	// Deploy actions. Inherited AWS variables are then dropped so a deploy
	// only ever holds one account's credentials.
	Credentials CredentialSource

	// Options are passed to every phase run.
	Options []executor.Option
}

// Run implements ActionRunner.
func (p *PhaseRunner) Run(ctx context.Context, run *Run, action domain.Action) error {
	opts := append([]executor.Option(nil), p.Options...)

	if action.InputArtifact != "" {
		dir, ok := run.Artifact(action.InputArtifact)
		if !ok {
			return ferrors.Newf(ferrors.CodeInvalidConfig, "artifact %q was not produced", action.InputArtifact)
		}
		opts = append(opts, executor.WithWorkingDir(dir))
	}

	if action.Kind == domain.ActionKindDeploy {
		if action.Account == nil {
			return ferrors.Newf(ferrors.CodeInvalidConfig, "deploy action %s has no account", action.Name)
		}
		opts = append(opts, executor.WithEnv(map[string]string{
			"STAGE":   action.Account.Stage,
			"ACCOUNT": action.Account.Number,
			"REGION":  action.Account.Region,
		}))
		if p.Credentials != nil {
			env, err := p.Credentials.Credentials(ctx, *action.Account)
			if err != nil {
				return err
			}
			opts = append(opts, executor.WithoutInherited("AWS_"), executor.WithEnviron(env))
		}
	}

	_, err := p.Phases.RunPhases(ctx, action.Commands, opts...)
	return err
}
