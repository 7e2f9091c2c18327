package rollout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

func TestDeployPermissions(t *testing.T) {
	staging := demoAccounts()[1]

	statements := DeployPermissions(staging)
	require.Len(t, statements, 2)

	assert.Equal(t, []string{ActionDescribeStacks}, statements[0].Action)
	assert.Equal(t, []string{
		"arn:aws:cloudformation:eu-central-1:222222222222:stack/SSTBootstrap/*",
		"arn:aws:cloudformation:eu-central-1:222222222222:stack/CDKToolkit/*",
	}, statements[0].Resource)

	assert.Equal(t, []string{ActionAssumeRole}, statements[1].Action)
	assert.Equal(t, []string{
		"arn:aws:iam::222222222222:role/SSTCodebuild",
		"arn:aws:iam::222222222222:role/check-dynamodb-tables-role",
	}, statements[1].Resource)

	assert.NoError(t, CheckIsolation(staging, statements))
}

func TestEveryAccountIsIsolated(t *testing.T) {
	accounts := demoAccounts()
	for _, account := range accounts {
		statements := DeployPermissions(account)
		require.NoError(t, CheckIsolation(account, statements))
		for _, other := range accounts {
			if other.Number == account.Number {
				continue
			}
			assert.Error(t, CheckIsolation(other, statements), "%s permissions leak into %s", account.Stage, other.Stage)
		}
	}
}

func TestCheckIsolationRejects(t *testing.T) {
	staging := demoAccounts()[1]

	tests := []struct {
		name      string
		statement PolicyStatement
		msg       string
	}{
		{"foreign account", PolicyStatement{Effect: "Allow", Action: []string{ActionAssumeRole},
			Resource: []string{"arn:aws:iam::333333333333:role/SSTCodebuild"}}, "belongs to account 333333333333"},
		{"wildcard account", PolicyStatement{Effect: "Allow", Action: []string{ActionAssumeRole},
			Resource: []string{"arn:aws:iam::*:role/SSTCodebuild"}}, "not scoped"},
		{"wildcard resource", PolicyStatement{Effect: "Allow", Action: []string{ActionDescribeStacks},
			Resource: []string{"*"}}, "not scoped"},
		{"extra action", PolicyStatement{Effect: "Allow", Action: []string{"s3:PutObject"},
			Resource: []string{"arn:aws:s3:::bucket/key"}}, "not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statements := append(DeployPermissions(staging), tt.statement)
			err := CheckIsolation(staging, statements)
			require.Error(t, err)
			assert.Equal(t, ferrors.CodeForbidden, ferrors.GetCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCheckGraphIsolation(t *testing.T) {
	graph, err := BuildStageGraph(demoDefinition(), nil)
	require.NoError(t, err)
	assert.NoError(t, CheckGraphIsolation(graph))

	bad := domain.Account{Stage: "bad", Number: "12", Region: "eu-central-1"}
	graph[2].Actions[0].Account = &bad
	assert.Error(t, CheckGraphIsolation(graph))
}

func TestPolicyDocument(t *testing.T) {
	doc := Document(DeployPermissions(demoAccounts()[0]))
	out, err := doc.MarshalIndent()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "2012-10-17", decoded["Version"])
	assert.Len(t, decoded["Statement"], 2)
}
