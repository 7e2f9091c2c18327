package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/rollout"
)

func newValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the delivery configuration",
		Long: `Load the delivery configuration, build every pipeline's stage graph and
check the graph ordering and per-account permission isolation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}

			var problems []error
			for _, p := range cfg.Pipelines {
				graph, err := rollout.BuildStageGraph(p, rollout.DefaultPolicy{})
				if err == nil {
					err = rollout.ValidateGraph(graph)
				}
				if err == nil {
					err = rollout.CheckGraphIsolation(graph)
				}
				if err != nil {
					problems = append(problems, fmt.Errorf("pipeline %s: %w", p.Name, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok %s (%d stages)\n", p.Name, len(graph))
			}
			if len(problems) > 0 {
				return errors.Wrap(errors.Join(problems...), errors.CodeInvalidConfig, "invalid stage graphs")
			}

			app.logger.InfoContext(ctx, "configuration valid", "pipelines", len(cfg.Pipelines))
			return nil
		},
	}
}
