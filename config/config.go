// Package config loads the delivery configuration: the watched repository,
// the ordered account sequence and the pipelines with their watched paths.
//
// Configuration is written in CUE, checked against an embedded schema and
// decoded into domain types.
//
// # Basic Usage
//
//	fs := osfs.New("/path/to/repo")
//	cfg, err := config.Load(ctx, fs, "delivery.cue")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	routes := cfg.Routes()
//	graph, err := cfg.StageGraph("FrontendStackPipeline", rollout.DefaultPolicy{})
//
// # Example
//
//	repository: "aws-cdk-pipeline-demo"
//	branch:     "main"
//	accounts: [
//	    {stage: "dev", number: "111111111111", region: "eu-central-1"},
//	    {stage: "staging", number: "222222222222", region: "eu-central-1"},
//	    {stage: "prod", number: "333333333333", region: "eu-central-1"},
//	]
//	pipelines: [{
//	    name:          "FrontendStackPipeline"
//	    purpose:       "frontend"
//	    watched_paths: ["packages/frontend", "stacks/FrontendStack"]
//	}]
//
// Pipelines inherit repository, branch and accounts from the top level unless
// they set their own.
package config

import (
	"context"

	gobilly "github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
)

// DefaultPath is the conventional configuration file name.
const DefaultPath = "delivery.cue"

// LoadOptions configures the behavior of configuration loading operations.
type LoadOptions struct {
	// SkipValidation disables the checks CUE cannot express (uniqueness,
	// route and graph invariants). Schema checks always run.
	SkipValidation bool
}

// PipelineSettings holds the settings used when applying pipelines to the
// managed execution service.
type PipelineSettings struct {
	RoleArn        string `json:"role_arn,omitempty"`
	ArtifactBucket string `json:"artifact_bucket,omitempty"`
}

// DeliveryConfig is the decoded delivery configuration.
type DeliveryConfig struct {
	// Repository is the watched repository name.
	Repository string `json:"repository"`

	// Branch is the watched branch. Defaults to domain.DefaultBranch.
	Branch string `json:"branch,omitempty"`

	// Settings configures declarative apply.
	Settings PipelineSettings `json:"settings,omitempty"`

	// Accounts is the default rollout sequence.
	Accounts []domain.Account `json:"accounts,omitempty"`

	// Pipelines are the delivered components.
	Pipelines []domain.PipelineDefinition `json:"pipelines"`
}

// Load loads and validates the configuration at path.
func Load(ctx context.Context, fs gobilly.Filesystem, path string) (*DeliveryConfig, error) {
	return load(ctx, fs, path, LoadOptions{})
}

// LoadWithOptions loads the configuration at path with custom options.
func LoadWithOptions(ctx context.Context, fs gobilly.Filesystem, path string, opts LoadOptions) (*DeliveryConfig, error) {
	return load(ctx, fs, path, opts)
}

// Parse loads configuration from CUE source held in memory.
func Parse(ctx context.Context, name string, src []byte, opts LoadOptions) (*DeliveryConfig, error) {
	return parse(ctx, name, src, opts)
}
