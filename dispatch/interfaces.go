package dispatch

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
)

// DiffProvider lists the files changed between two revisions of a repository.
// An empty before revision means the repository's empty tree. Unknown
// repositories or revisions are reported with errors.CodeNotFound.
type DiffProvider interface {
	GetDifferences(ctx context.Context, repository, before, after string) ([]domain.FileDiffEntry, error)
}

// ExecutionTrigger starts one execution of a named pipeline and returns the
// execution id assigned by the execution service.
type ExecutionTrigger interface {
	StartExecution(ctx context.Context, pipelineName string) (string, error)
}
