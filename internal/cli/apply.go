package cli

import (
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-delivery/config"
	"github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/rollout"
	"github.com/input-output-hk/catalyst-forge-delivery/services/aws/codepipeline"
)

func newApplyCommand(app *App) *cobra.Command {
	var (
		dryRun     bool
		output     string
		policyName string
	)

	cmd := &cobra.Command{
		Use:   "apply [PIPELINE...]",
		Short: "Create or update pipelines from their stage graphs",
		Long: `Render each pipeline's stage graph into a CodePipeline declaration and
create the pipeline, or update it when one with the same name exists.
Without arguments every configured pipeline is applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}
			policy, err := policyFor(policyName)
			if err != nil {
				return err
			}
			decls, err := declarations(cfg, policy, args)
			if err != nil {
				return err
			}

			if dryRun {
				return render(cmd.OutOrStdout(), output, decls)
			}

			client, err := app.pipelineClient(ctx)
			if err != nil {
				return err
			}

			results := make([]*codepipeline.ApplyResult, 0, len(decls))
			for _, decl := range decls {
				res, err := client.Apply(ctx, decl)
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			return render(cmd.OutOrStdout(), output, results)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print declarations without applying them")
	cmd.Flags().StringVarP(&output, "output", "o", formatJSON, "output format (json, yaml)")
	cmd.Flags().StringVar(&policyName, "policy", "default", "approval policy (default, gated, auto)")
	return cmd
}

// declarations renders the named pipelines, or all of them when names is
// empty, in configuration order.
func declarations(cfg *config.DeliveryConfig, policy rollout.AccountPolicy, names []string) ([]*types.PipelineDeclaration, error) {
	if cfg.Settings.RoleArn == "" || cfg.Settings.ArtifactBucket == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "settings.role_arn and settings.artifact_bucket are required to apply pipelines")
	}
	if len(names) == 0 {
		names = cfg.ListPipelines()
	}

	decls := make([]*types.PipelineDeclaration, 0, len(names))
	for _, name := range names {
		graph, err := cfg.StageGraph(name, policy)
		if err != nil {
			return nil, err
		}
		if err := rollout.ValidateGraph(graph); err != nil {
			return nil, err
		}
		decl, err := codepipeline.Declaration(codepipeline.DeclarationConfig{
			Name:           name,
			RoleArn:        cfg.Settings.RoleArn,
			ArtifactBucket: cfg.Settings.ArtifactBucket,
		}, graph)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}
