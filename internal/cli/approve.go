package cli

import (
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-delivery/rollout"
)

func newApproveCommand(app *App) *cobra.Command {
	var (
		action  string
		summary string
		reject  bool
	)

	cmd := &cobra.Command{
		Use:   "approve PIPELINE STAGE",
		Short: "Approve or reject a pending promotion",
		Example: `  forge-delivery approve FrontendStackPipeline Deploy-STAGING
  forge-delivery approve FrontendStackPipeline Deploy-PROD --reject --summary "failed smoke test"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.pipelineClient(ctx)
			if err != nil {
				return err
			}

			pipeline, stage := args[0], args[1]
			if reject {
				err = client.Reject(ctx, pipeline, stage, action, summary)
			} else {
				err = client.Approve(ctx, pipeline, stage, action, summary)
			}
			if err != nil {
				return err
			}

			verdict := "approved"
			if reject {
				verdict = "rejected"
			}
			cmd.Printf("%s %s/%s\n", verdict, pipeline, stage)
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", rollout.ApprovalActionName, "approval action name")
	cmd.Flags().StringVar(&summary, "summary", "", "reason recorded with the decision")
	cmd.Flags().BoolVar(&reject, "reject", false, "reject instead of approve")
	return cmd
}

func newStatusCommand(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status PIPELINE",
		Short: "Show the latest execution state of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.pipelineClient(ctx)
			if err != nil {
				return err
			}
			state, err := client.State(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, state)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatJSON, "output format (json, yaml)")
	return cmd
}
