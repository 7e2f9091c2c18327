package rollout

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// IAM actions a Deploy stage may hold.
const (
	ActionDescribeStacks = "cloudformation:DescribeStacks"
	ActionAssumeRole     = "sts:AssumeRole"
)

// Bootstrap stacks whose status a deploy may query.
var bootstrapStacks = []string{"SSTBootstrap", "CDKToolkit"}

// PolicyStatement is one IAM policy statement.
type PolicyStatement struct {
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

// PolicyDocument is an IAM policy document.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

// DeployPermissions returns the complete statement set of the role executing
// the Deploy stage of account: read-only status queries on the account's
// bootstrap stacks, and assuming the account's deploy and verification roles.
func DeployPermissions(account domain.Account) []PolicyStatement {
	stacks := make([]string, 0, len(bootstrapStacks))
	for _, s := range bootstrapStacks {
		stacks = append(stacks, fmt.Sprintf("arn:aws:cloudformation:%s:%s:stack/%s/*", account.Region, account.Number, s))
	}
	return []PolicyStatement{
		{
			Effect:   "Allow",
			Action:   []string{ActionDescribeStacks},
			Resource: stacks,
		},
		{
			Effect: "Allow",
			Action: []string{ActionAssumeRole},
			Resource: []string{
				domain.RoleArn(account.Number, domain.DeployRoleName),
				domain.RoleArn(account.Number, domain.VerificationRoleName),
			},
		},
	}
}

// Document wraps statements into a policy document.
func Document(statements []PolicyStatement) PolicyDocument {
	return PolicyDocument{Version: "2012-10-17", Statement: statements}
}

// MarshalIndent renders the document as indented JSON.
func (d PolicyDocument) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// CheckIsolation verifies that statements grant only the Deploy stage
// actions and that every resource lives in account. Wildcard and foreign
// account resources are rejected.
func CheckIsolation(account domain.Account, statements []PolicyStatement) error {
	var problems []error
	for i, st := range statements {
		if st.Effect != "Allow" {
			continue
		}
		for _, action := range st.Action {
			if action != ActionDescribeStacks && action != ActionAssumeRole {
				problems = append(problems, fmt.Errorf("statement %d: action %q is not allowed for a deploy stage", i, action))
			}
		}
		for _, resource := range st.Resource {
			owner, ok := arnAccount(resource)
			switch {
			case !ok:
				problems = append(problems, fmt.Errorf("statement %d: resource %q is not scoped to an account", i, resource))
			case owner != account.Number:
				problems = append(problems, fmt.Errorf("statement %d: resource %q belongs to account %s, not %s",
					i, resource, owner, account.Number))
			}
		}
	}
	if len(problems) > 0 {
		return ferrors.WrapWithContext(ferrors.Join(problems...), ferrors.CodeForbidden,
			"deploy permissions cross the account boundary",
			map[string]any{"account": account.Number, "stage": account.Stage})
	}
	return nil
}

// CheckGraphIsolation runs CheckIsolation on the permissions of every Deploy
// stage of graph.
func CheckGraphIsolation(graph []domain.StageDefinition) error {
	var errs []error
	for _, stage := range graph {
		for _, action := range stage.Actions {
			if action.Kind != domain.ActionKindDeploy || action.Account == nil {
				continue
			}
			if err := CheckIsolation(*action.Account, DeployPermissions(*action.Account)); err != nil {
				errs = append(errs, fmt.Errorf("stage %s: %w", stage.Name, err))
			}
		}
	}
	return ferrors.Join(errs...)
}

// arnAccount returns the account field of an ARN. The field must be a
// concrete 12-digit account id.
func arnAccount(arn string) (string, bool) {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" {
		return "", false
	}
	if !domain.ValidAccountNumber(parts[4]) {
		return "", false
	}
	if parts[5] == "" || parts[5] == "*" {
		return "", false
	}
	return parts[4], true
}
