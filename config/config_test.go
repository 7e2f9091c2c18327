package config

import (
	"context"
	"testing"

	gobilly "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/rollout"
)

const validConfig = `
repository: "aws-cdk-pipeline-demo"
settings: {
	role_arn:        "arn:aws:iam::111111111111:role/pipeline"
	artifact_bucket: "delivery-artifacts"
}
accounts: [
	{stage: "dev", number: "111111111111", region: "eu-central-1"},
	{stage: "staging", number: "222222222222", region: "eu-central-1"},
	{stage: "prod", number: "333333333333", region: "eu-central-1"},
]
pipelines: [{
	name:          "FrontendStackPipeline"
	purpose:       "frontend"
	watched_paths: ["packages/frontend", "stacks/FrontendStack"]
}, {
	name:          "BackendStackPipeline"
	purpose:       "backend"
	branch:        "release"
	watched_paths: ["packages/backend", "stacks/BackendStack"]
	accounts: [
		{stage: "dev", number: "111111111111", region: "eu-west-1", requires_approval: true},
	]
}]
`

func writeConfig(t *testing.T, src string) gobilly.Filesystem {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, DefaultPath, []byte(src), 0o644))
	return fs
}

func TestLoad(t *testing.T) {
	fs := writeConfig(t, validConfig)

	cfg, err := Load(context.Background(), fs, DefaultPath)
	require.NoError(t, err)

	assert.Equal(t, "aws-cdk-pipeline-demo", cfg.Repository)
	assert.Equal(t, "main", cfg.Branch)
	assert.Equal(t, "delivery-artifacts", cfg.Settings.ArtifactBucket)
	assert.Equal(t, []string{"FrontendStackPipeline", "BackendStackPipeline"}, cfg.ListPipelines())

	frontend, ok := cfg.Pipeline("FrontendStackPipeline")
	require.True(t, ok)
	assert.Equal(t, "aws-cdk-pipeline-demo", frontend.Repository)
	assert.Equal(t, "main", frontend.Branch)
	require.Len(t, frontend.Accounts, 3)
	assert.Equal(t, "staging", frontend.Accounts[1].Stage)
	assert.Nil(t, frontend.Accounts[0].RequiresApproval)

	backend, ok := cfg.Pipeline("BackendStackPipeline")
	require.True(t, ok)
	assert.Equal(t, "release", backend.Branch)
	require.Len(t, backend.Accounts, 1)
	require.NotNil(t, backend.Accounts[0].RequiresApproval)
	assert.True(t, *backend.Accounts[0].RequiresApproval)
	assert.Equal(t, "eu-west-1", backend.Accounts[0].Region)
}

func TestLoadRoutes(t *testing.T) {
	cfg, err := Load(context.Background(), writeConfig(t, validConfig), DefaultPath)
	require.NoError(t, err)

	routes := cfg.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "FrontendStackPipeline", routes[0].PipelineName)
	assert.Equal(t, []string{"packages/frontend", "stacks/FrontendStack"}, routes[0].WatchedPathPrefixes)

	routes[0].WatchedPathPrefixes[0] = "mutated"
	assert.Equal(t, "packages/frontend", cfg.Pipelines[0].WatchedPaths[0])
}

func TestStageGraph(t *testing.T) {
	cfg, err := Load(context.Background(), writeConfig(t, validConfig), DefaultPath)
	require.NoError(t, err)

	graph, err := cfg.StageGraph("FrontendStackPipeline", rollout.DefaultPolicy{})
	require.NoError(t, err)
	require.Len(t, graph, 5)
	assert.Equal(t, "Deploy-PROD", graph[4].Name)

	_, err = cfg.StageGraph("Missing", rollout.DefaultPolicy{})
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	graphs, err := cfg.StageGraphs(rollout.DefaultPolicy{})
	require.NoError(t, err)
	assert.Len(t, graphs, 2)
	assert.Len(t, graphs["BackendStackPipeline"], 3)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		code     errors.ErrorCode
		contains []string
	}{
		{
			name: "syntax error",
			src:  `repository: "x" pipelines: [`,
			code: errors.CodeConfigLoadFailed,
		},
		{
			name:     "malformed account number",
			src:      `repository: "r", pipelines: [{name: "a", watched_paths: ["p"], accounts: [{stage: "dev", number: "123", region: "eu-central-1"}]}]`,
			code:     errors.CodeInvalidConfig,
			contains: []string{"schema"},
		},
		{
			name:     "missing repository",
			src:      `pipelines: [{name: "a", watched_paths: ["p"]}]`,
			code:     errors.CodeInvalidConfig,
			contains: []string{"schema"},
		},
		{
			name:     "empty watched path",
			src:      `repository: "r", pipelines: [{name: "a", watched_paths: [""]}]`,
			code:     errors.CodeInvalidConfig,
			contains: []string{"schema"},
		},
		{
			name: "duplicate pipeline names and stages",
			src: `repository: "r"
pipelines: [
	{name: "a", watched_paths: ["p"]},
	{name: "a", watched_paths: ["q"], accounts: [
		{stage: "dev", number: "111111111111", region: "eu-central-1"},
		{stage: "DEV", number: "222222222222", region: "eu-central-1"},
	]},
]`,
			code:     errors.CodeInvalidConfig,
			contains: []string{`duplicate pipeline name "a"`, `duplicate stage "DEV"`},
		},
		{
			name:     "no watched paths",
			src:      `repository: "r", pipelines: [{name: "a", watched_paths: []}]`,
			code:     errors.CodeInvalidConfig,
			contains: []string{"no watched paths"},
		},
		{
			name:     "no pipelines",
			src:      `repository: "r", pipelines: []`,
			code:     errors.CodeInvalidConfig,
			contains: []string{"no pipelines configured"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), writeConfig(t, tt.src), DefaultPath)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			for _, s := range tt.contains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), memfs.New(), "missing.cue")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigLoadFailed, errors.GetCode(err))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "missing.cue", e.Context["path"])
}

func TestLoadNilFilesystem(t *testing.T) {
	_, err := Load(context.Background(), nil, DefaultPath)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestLoadSkipValidation(t *testing.T) {
	src := `repository: "r", pipelines: [{name: "a", watched_paths: ["p"]}, {name: "a", watched_paths: ["q"]}]`

	cfg, err := LoadWithOptions(context.Background(), writeConfig(t, src), DefaultPath, LoadOptions{SkipValidation: true})
	require.NoError(t, err)
	assert.Len(t, cfg.Pipelines, 2)
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parse(ctx, "inline.cue", []byte(validConfig), LoadOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
