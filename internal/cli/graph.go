package cli

import (
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	"github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/rollout"
)

func policyFor(name string) (rollout.AccountPolicy, error) {
	switch name {
	case "", "default":
		return rollout.DefaultPolicy{}, nil
	case "gated":
		return rollout.GatedPolicy{}, nil
	case "auto":
		return rollout.AutoPolicy{}, nil
	default:
		return nil, errors.Newf(errors.CodeInvalidInput, "unknown approval policy %q", name)
	}
}

func newGraphCommand(app *App) *cobra.Command {
	var (
		output      string
		policyName  string
		buildspec   string
		permissions bool
	)

	cmd := &cobra.Command{
		Use:   "graph PIPELINE",
		Short: "Print a pipeline's stage graph",
		Long: `Print the stage graph of a configured pipeline.

With --buildspec STAGE the buildspec of that stage's build or deploy action is
printed instead. With --permissions the per-account deploy policy documents
are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			policy, err := policyFor(policyName)
			if err != nil {
				return err
			}
			graph, err := cfg.StageGraph(args[0], policy)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case buildspec != "":
				cmds, err := stageCommands(graph, buildspec)
				if err != nil {
					return err
				}
				data, err := rollout.RenderBuildSpec(cmds)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			case permissions:
				docs := make(map[string]rollout.PolicyDocument)
				for _, stage := range graph {
					for _, action := range stage.Actions {
						if action.Kind == domain.ActionKindDeploy && action.Account != nil {
							docs[stage.Name] = rollout.Document(rollout.DeployPermissions(*action.Account))
						}
					}
				}
				return render(out, output, docs)
			default:
				return render(out, output, graph)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatJSON, "output format (json, yaml)")
	cmd.Flags().StringVar(&policyName, "policy", "default", "approval policy (default, gated, auto)")
	cmd.Flags().StringVar(&buildspec, "buildspec", "", "print the buildspec of the named stage")
	cmd.Flags().BoolVar(&permissions, "permissions", false, "print deploy policy documents per stage")
	cmd.MarkFlagsMutuallyExclusive("buildspec", "permissions")
	return cmd
}

// stageCommands returns the commands of the build or deploy action of the
// named stage.
func stageCommands(graph []domain.StageDefinition, stageName string) (domain.Commands, error) {
	for _, stage := range graph {
		if stage.Name != stageName {
			continue
		}
		for _, action := range stage.Actions {
			if action.Kind == domain.ActionKindBuild || action.Kind == domain.ActionKindDeploy {
				return action.Commands, nil
			}
		}
		return domain.Commands{}, errors.Newf(errors.CodeInvalidInput, "stage %s runs no commands", stageName)
	}
	return domain.Commands{}, errors.Newf(errors.CodeNotFound, "stage %s not found", stageName)
}
