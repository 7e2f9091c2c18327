package executor

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// Phase names, in execution order.
const (
	PhaseInstall   = "install"
	PhasePreBuild  = "pre_build"
	PhaseBuild     = "build"
	PhasePostBuild = "post_build"
)

// PhaseResult is the outcome of one command of one phase.
type PhaseResult struct {
	Phase string
	*Result
}

// Report is the outcome of a phase run.
type Report struct {
	// Results holds every command run, in order. The last entry is the
	// failing command when the run failed.
	Results []PhaseResult

	// FailedPhase is the phase that stopped the run, if any.
	FailedPhase string
}

// PhaseRunner runs buildspec phases.
type PhaseRunner interface {
	RunPhases(ctx context.Context, cmds domain.Commands, opts ...Option) (*Report, error)
}

// Phases runs buildspec phases with an Executor.
type Phases struct {
	exec Executor
}

// NewPhases returns a PhaseRunner backed by exec. A nil exec uses NewShell().
func NewPhases(exec Executor) *Phases {
	if exec == nil {
		exec = NewShell()
	}
	return &Phases{exec: exec}
}

// RunPhases runs install, pre_build, build and post_build in that order. It
// stops at the first command that fails and returns an EXECUTION_FAILED error
// naming the phase and command; later commands are never started.
func (p *Phases) RunPhases(ctx context.Context, cmds domain.Commands, opts ...Option) (*Report, error) {
	report := &Report{}
	for _, phase := range []struct {
		name     string
		commands []string
	}{
		{PhaseInstall, cmds.Install},
		{PhasePreBuild, cmds.PreBuild},
		{PhaseBuild, cmds.Build},
		{PhasePostBuild, cmds.PostBuild},
	} {
		for _, command := range phase.commands {
			if err := ctx.Err(); err != nil {
				report.FailedPhase = phase.name
				return report, ferrors.Wrap(err, ferrors.CodeTimeout, "phase run cancelled")
			}

			result, err := p.exec.Run(ctx, command, opts...)
			if result == nil {
				result = &Result{Command: command, ExitCode: -1, Err: err}
			}
			report.Results = append(report.Results, PhaseResult{Phase: phase.name, Result: result})
			if err != nil {
				report.FailedPhase = phase.name
				return report, ferrors.WrapWithContext(err, ferrors.CodeExecutionFailed,
					"phase "+phase.name+" failed",
					map[string]any{"phase": phase.name, "command": command, "exit_code": result.ExitCode})
			}
		}
	}
	return report, nil
}
