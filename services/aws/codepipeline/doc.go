// Package codepipeline wraps the AWS SDK v2 CodePipeline service for the
// delivery system. It covers the execution-service side of both subsystems:
//
//   - StartExecution: the dispatcher's execution trigger
//   - State: the status surface of pipeline runs (halted stage, pending approvals)
//   - Approve / Reject: the approval signal for gated deploy stages
//   - Apply: the declarative, idempotent create-or-update of a stage graph
//
// # IAM Permissions
//
// The dispatcher needs only codepipeline:StartPipelineExecution on its
// pipelines. Operators approving deploys need codepipeline:GetPipelineState and
// codepipeline:PutApprovalResult. Apply needs codepipeline:GetPipeline,
// codepipeline:CreatePipeline, codepipeline:UpdatePipeline and iam:PassRole on
// the pipeline role.
//
// # Thread safety
//
// All Client methods are safe for concurrent use by multiple goroutines.
package codepipeline
