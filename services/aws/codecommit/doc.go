// Package codecommit provides the cloud diff provider of the change dispatcher:
// a thin, testable client over the AWS SDK v2 CodeCommit service that returns
// the files changed between two commits of a repository.
//
// # IAM Permissions
//
// The client needs exactly one permission, scoped to the watched repository:
//
//	{
//	  "Effect": "Allow",
//	  "Action": ["codecommit:GetDifferences"],
//	  "Resource": "arn:aws:codecommit:<region>:<account>:<repository>"
//	}
//
// # Errors
//
// Unknown repositories and commits are reported as ErrNotFound (and carry
// errors.CodeNotFound), so the dispatcher can fail closed with DiffUnavailable.
//
// # Thread safety
//
// All Client methods are safe for concurrent use by multiple goroutines.
package codecommit
