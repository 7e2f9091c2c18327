package rollout

import (
	"fmt"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// ValidateGraph checks the ordering invariants of a stage graph:
//   - Source is first and Build second; every later stage is a Deploy stage
//   - stage names are unique, action names are unique within a stage
//   - run orders are positive
//   - a Deploy stage holds exactly one deploy action, scoped to one account
//   - an approval, when present, runs strictly before the deploy it gates
//   - no two Deploy stages target the same account
//
// Every violation is collected into one INVALID_CONFIGURATION error.
func ValidateGraph(graph []domain.StageDefinition) error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if len(graph) < 2 {
		add("graph needs at least the %s and %s stages, got %d stages", SourceStage, BuildStage, len(graph))
	}
	if len(graph) > 0 && !hasKind(graph[0], domain.ActionKindSource) {
		add("stage 0 (%s) is not a source stage", graph[0].Name)
	}
	if len(graph) > 1 && !hasKind(graph[1], domain.ActionKindBuild) {
		add("stage 1 (%s) is not a build stage", graph[1].Name)
	}

	stageNames := make(map[string]bool, len(graph))
	accounts := make(map[string]string)
	for i, stage := range graph {
		if stageNames[stage.Name] {
			add("duplicate stage %q", stage.Name)
		}
		stageNames[stage.Name] = true

		if len(stage.Actions) == 0 {
			add("stage %q has no actions", stage.Name)
			continue
		}

		actionNames := make(map[string]bool, len(stage.Actions))
		for _, action := range stage.Actions {
			if actionNames[action.Name] {
				add("stage %q: duplicate action %q", stage.Name, action.Name)
			}
			actionNames[action.Name] = true
			if action.RunOrder < 1 {
				add("stage %q: action %q has run order %d", stage.Name, action.Name, action.RunOrder)
			}
			if i >= 2 && (action.Kind == domain.ActionKindSource || action.Kind == domain.ActionKindBuild) {
				add("stage %q: %s action %q after the build stage", stage.Name, action.Kind, action.Name)
			}
		}

		if i < 2 {
			continue
		}
		account, err := validateDeployStage(stage)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		if prev, ok := accounts[account]; ok {
			add("stages %q and %q both deploy to account %s", prev, stage.Name, account)
		}
		accounts[account] = stage.Name
	}

	if len(problems) > 0 {
		return ferrors.Wrap(ferrors.Join(problems...), ferrors.CodeInvalidConfig, "invalid stage graph")
	}
	return nil
}

func validateDeployStage(stage domain.StageDefinition) (string, error) {
	var deploy *domain.Action
	for i := range stage.Actions {
		if stage.Actions[i].Kind != domain.ActionKindDeploy {
			continue
		}
		if deploy != nil {
			return "", fmt.Errorf("stage %q has more than one deploy action", stage.Name)
		}
		deploy = &stage.Actions[i]
	}
	if deploy == nil {
		return "", fmt.Errorf("stage %q has no deploy action", stage.Name)
	}
	if deploy.Account == nil {
		return "", fmt.Errorf("stage %q: deploy action has no account", stage.Name)
	}

	for _, action := range stage.Actions {
		if action.Kind != domain.ActionKindManualApproval {
			continue
		}
		if action.RunOrder >= deploy.RunOrder {
			return "", fmt.Errorf("stage %q: approval %q does not run before the deploy", stage.Name, action.Name)
		}
		if action.Account != nil && action.Account.Number != deploy.Account.Number {
			return "", fmt.Errorf("stage %q: approval targets account %s, deploy targets %s",
				stage.Name, action.Account.Number, deploy.Account.Number)
		}
	}
	return deploy.Account.Number, nil
}

func hasKind(stage domain.StageDefinition, kind domain.ActionKind) bool {
	for _, a := range stage.Actions {
		if a.Kind == kind {
			return true
		}
	}
	return false
}
