package sts

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// API defines the subset of the AWS STS client used by Client.
type API interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}
