package domain

import (
	"fmt"
	"strings"
)

// Role names every target account provides.
const (
	DeployRoleName       = "SSTCodebuild"
	VerificationRoleName = "check-dynamodb-tables-role"
)

// ValidAccountNumber reports whether n is a 12-digit AWS account id.
func ValidAccountNumber(n string) bool {
	if len(n) != 12 {
		return false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RoleArn returns the ARN of role in account.
func RoleArn(account, role string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", account, role)
}

// DeployStageName returns the name of the Deploy stage for a stage, e.g.
// "Deploy-STAGING".
func DeployStageName(stage string) string {
	return "Deploy-" + strings.ToUpper(stage)
}

// Gated reports whether a deploy to a must wait for manual approval. An
// explicit RequiresApproval wins; otherwise every stage but dev is gated.
func (a Account) Gated() bool {
	if a.RequiresApproval != nil {
		return *a.RequiresApproval
	}
	return a.Stage != DevStage
}
