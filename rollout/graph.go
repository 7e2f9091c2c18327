package rollout

import (
	"fmt"
	"os"
	"strings"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// Stage, action and artifact names of a generated graph.
const (
	SourceStage        = "Source"
	BuildStage         = "Build"
	ApprovalActionName = "ManualApproval"
	SourceArtifact     = "SourceArtifact"
)

// Run orders inside a Deploy stage.
const (
	approvalRunOrder = 1
	deployRunOrder   = 2
)

// DefaultBuildCommands are the Build stage commands used when a definition
// sets none.
var DefaultBuildCommands = domain.Commands{
	Install: []string{"npm install"},
	Build:   []string{"npm run lint", "npm run test:unit", "npm run build"},
}

// DefaultIntegrationTest runs after each deploy when a definition sets none.
var DefaultIntegrationTest = []string{"npm run test:integration"}

// BuildStageGraph returns the stage graph of def. Accounts are deployed in
// their configured order and policy decides which Deploy stages are gated; a
// nil policy means DefaultPolicy.
//
// Malformed definitions fail with an INVALID_CONFIGURATION error that lists
// every problem; no partial graph is returned.
func BuildStageGraph(def domain.PipelineDefinition, policy AccountPolicy) ([]domain.StageDefinition, error) {
	if err := ValidateDefinition(def); err != nil {
		return nil, err
	}
	if policy == nil {
		policy = DefaultPolicy{}
	}

	branch := def.Branch
	if branch == "" {
		branch = domain.DefaultBranch
	}
	build := def.Build
	if isEmpty(build) {
		build = DefaultBuildCommands
	}

	graph := []domain.StageDefinition{
		{Name: SourceStage, Actions: []domain.Action{{
			Name:           SourceStage,
			Kind:           domain.ActionKindSource,
			RunOrder:       1,
			Repository:     def.Repository,
			Branch:         branch,
			OutputArtifact: SourceArtifact,
		}}},
		{Name: BuildStage, Actions: []domain.Action{{
			Name:          BuildStage,
			Kind:          domain.ActionKindBuild,
			RunOrder:      1,
			Commands:      cloneCommands(build),
			InputArtifact: SourceArtifact,
			ProjectName:   def.Name + "-Build",
		}}},
	}

	for _, account := range def.Accounts {
		graph = append(graph, deployStage(def, account, policy.Gated(account)))
	}
	return graph, nil
}

func deployStage(def domain.PipelineDefinition, account domain.Account, gated bool) domain.StageDefinition {
	name := domain.DeployStageName(account.Stage)
	target := account

	deploy := domain.Action{
		Name:          name,
		Kind:          domain.ActionKindDeploy,
		RunOrder:      deployRunOrder,
		Account:       &target,
		Commands:      DeployCommands(def, account),
		InputArtifact: SourceArtifact,
		ProjectName:   fmt.Sprintf("%s-DeployTo%s", def.Name, account.Stage),
	}
	if !gated {
		return domain.StageDefinition{Name: name, Actions: []domain.Action{deploy}}
	}

	approver := account
	return domain.StageDefinition{Name: name, Actions: []domain.Action{
		{
			Name:                  ApprovalActionName,
			Kind:                  domain.ActionKindManualApproval,
			RunOrder:              approvalRunOrder,
			Account:               &approver,
			AdditionalInformation: "Review Before Deploy " + account.Stage,
		},
		deploy,
	}}
}

// DeployCommands returns the deploy commands of def for one account. Without
// explicit deploy commands the account role is assumed, the purpose is
// deployed with sst to the account's stage, and the integration test runs
// last.
func DeployCommands(def domain.PipelineDefinition, account domain.Account) domain.Commands {
	cmds := def.Deploy
	if isEmpty(cmds) {
		cmds = domain.Commands{
			Install: []string{"./scripts/assume-role.sh ${ROLE_ARN}"},
			Build:   []string{"PURPOSE=${PURPOSE} npx sst deploy --stage ${STAGE}"},
		}
	}
	if len(cmds.PostBuild) == 0 {
		cmds.PostBuild = def.IntegrationTest
		if len(cmds.PostBuild) == 0 {
			cmds.PostBuild = DefaultIntegrationTest
		}
	}

	vars := map[string]string{
		"STAGE":    account.Stage,
		"ACCOUNT":  account.Number,
		"REGION":   account.Region,
		"PURPOSE":  def.Purpose,
		"ROLE_ARN": domain.RoleArn(account.Number, domain.DeployRoleName),
	}
	expand := func(in []string) []string {
		if in == nil {
			return nil
		}
		out := make([]string, len(in))
		for i, c := range in {
			out[i] = os.Expand(c, func(k string) string {
				if v, ok := vars[k]; ok {
					return v
				}
				return "${" + k + "}"
			})
		}
		return out
	}

	return domain.Commands{
		PreBuild:  expand(cmds.PreBuild),
		Install:   expand(cmds.Install),
		Build:     expand(cmds.Build),
		PostBuild: expand(cmds.PostBuild),
	}
}

// ValidateDefinition reports every problem of def as one INVALID_CONFIGURATION
// error: missing names, malformed accounts and duplicate stages.
func ValidateDefinition(def domain.PipelineDefinition) error {
	var problems []error
	if def.Name == "" {
		problems = append(problems, fmt.Errorf("pipeline name is empty"))
	}
	if def.Repository == "" {
		problems = append(problems, fmt.Errorf("pipeline %q: repository is empty", def.Name))
	}

	stages := make(map[string]bool, len(def.Accounts))
	for i, account := range def.Accounts {
		if account.Stage == "" {
			problems = append(problems, fmt.Errorf("account %d: stage is empty", i))
		}
		key := strings.ToUpper(account.Stage)
		if account.Stage != "" && stages[key] {
			problems = append(problems, fmt.Errorf("account %d: duplicate stage %q", i, account.Stage))
		}
		stages[key] = true

		if !domain.ValidAccountNumber(account.Number) {
			problems = append(problems, fmt.Errorf("account %q: invalid account number %q", account.Stage, account.Number))
		}
		if account.Region == "" {
			problems = append(problems, fmt.Errorf("account %q: region is empty", account.Stage))
		}
	}

	if len(problems) > 0 {
		return ferrors.WrapWithContext(ferrors.Join(problems...), ferrors.CodeInvalidConfig,
			"invalid pipeline definition", map[string]any{"pipeline_name": def.Name})
	}
	return nil
}

func isEmpty(c domain.Commands) bool {
	return len(c.PreBuild) == 0 && len(c.Install) == 0 && len(c.Build) == 0 && len(c.PostBuild) == 0
}

func cloneCommands(c domain.Commands) domain.Commands {
	clone := func(s []string) []string {
		if s == nil {
			return nil
		}
		return append([]string(nil), s...)
	}
	return domain.Commands{
		PreBuild:  clone(c.PreBuild),
		Install:   clone(c.Install),
		Build:     clone(c.Build),
		PostBuild: clone(c.PostBuild),
	}
}
