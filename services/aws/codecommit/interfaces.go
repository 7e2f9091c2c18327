package codecommit

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/codecommit"
)

// API defines the subset of the AWS CodeCommit client used by Client.
// It abstracts the SDK client to enable testing with mocks.
type API interface {
	// GetDifferences returns one page of differences between two commit specifiers.
	GetDifferences(
		ctx context.Context,
		params *codecommit.GetDifferencesInput,
		optFns ...func(*codecommit.Options),
	) (*codecommit.GetDifferencesOutput, error)
}
