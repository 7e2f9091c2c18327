package git

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// ChangeFilter is a predicate function for filtering changes in diffs.
// It returns true if the change should be included in the diff output.
// Filters are applied progressively - if any filter returns false, the change is excluded.
type ChangeFilter func(*object.Change) bool

// Differences computes the changed files between revisions before and after,
// in the order go-git reports them. An empty before revision diffs against the
// empty tree, which is what a newly created branch looks like.
//
// Renames are detected and reported as a single entry with both paths set.
// Context timeout/cancellation is honored during the tree walk.
func (r *Repo) Differences(
	ctx context.Context,
	before, after string,
	filters ...ChangeFilter,
) ([]domain.FileDiffEntry, error) {
	if after == "" {
		return nil, WrapError(ErrInvalidRef, "after revision cannot be empty")
	}

	treeBefore := &object.Tree{}
	if before != "" {
		tree, err := r.getTreeForRevision(before)
		if err != nil {
			return nil, WrapErrorf(err, "failed to get tree for revision %q", before)
		}
		treeBefore = tree
	}

	treeAfter, err := r.getTreeForRevision(after)
	if err != nil {
		return nil, WrapErrorf(err, "failed to get tree for revision %q", after)
	}

	changes, err := object.DiffTreeWithOptions(ctx, treeBefore, treeAfter, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, WrapError(err, "failed to compute changes")
	}

	entries := make([]domain.FileDiffEntry, 0, len(changes))
	for _, change := range applyChangeFilters(changes, filters) {
		entry, err := toDiffEntry(change)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// getTreeForRevision resolves a revision and returns its tree
func (r *Repo) getTreeForRevision(rev string) (*object.Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, WrapError(ErrResolveFailed, "failed to resolve revision")
	}

	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, WrapError(ErrResolveFailed, "failed to get commit object")
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, WrapError(err, "failed to get tree")
	}

	return tree, nil
}

func toDiffEntry(change *object.Change) (domain.FileDiffEntry, error) {
	action, err := change.Action()
	if err != nil {
		return domain.FileDiffEntry{}, WrapError(err, "failed to classify change")
	}

	entry := domain.FileDiffEntry{
		Path:       change.To.Name,
		BeforePath: change.From.Name,
	}
	switch {
	case action == merkletrie.Insert:
		entry.ChangeKind = domain.ChangeKindAdded
	case action == merkletrie.Delete:
		entry.ChangeKind = domain.ChangeKindDeleted
	case change.From.Name != change.To.Name:
		entry.ChangeKind = domain.ChangeKindRenamed
	default:
		entry.ChangeKind = domain.ChangeKindModified
	}
	return entry, nil
}

// applyChangeFilters applies all filters to changes and returns filtered results
func applyChangeFilters(changes object.Changes, filters []ChangeFilter) object.Changes {
	if len(filters) == 0 {
		return changes
	}
	var filtered object.Changes
	for _, change := range changes {
		if shouldIncludeChange(change, filters) {
			filtered = append(filtered, change)
		}
	}
	return filtered
}

// shouldIncludeChange checks if a change passes all filters
func shouldIncludeChange(change *object.Change, filters []ChangeFilter) bool {
	for _, filter := range filters {
		if filter != nil && !filter(change) {
			return false
		}
	}
	return true
}

// Provider serves GetDifferences for one named local repository, matching the
// diff-provider contract of the dispatcher.
type Provider struct {
	name    string
	repo    *Repo
	filters []ChangeFilter
}

// NewProvider returns a Provider answering for the repository called name.
// An empty name answers for any repository id.
func NewProvider(name string, repo *Repo, filters ...ChangeFilter) *Provider {
	return &Provider{name: name, repo: repo, filters: filters}
}

// GetDifferences returns the changed files between before and after.
// Unknown repositories and unresolvable revisions are reported with
// errors.CodeNotFound so the dispatcher fails closed.
func (p *Provider) GetDifferences(
	ctx context.Context,
	repository, before, after string,
) ([]domain.FileDiffEntry, error) {
	if p.name != "" && repository != p.name {
		return nil, ferrors.WrapWithContext(ErrRepositoryMissing, ferrors.CodeNotFound,
			"unknown repository", map[string]any{"repository": repository})
	}

	entries, err := p.repo.Differences(ctx, before, after, p.filters...)
	if err != nil {
		if ferrors.Is(err, ErrResolveFailed) || ferrors.Is(err, ErrInvalidRef) {
			return nil, ferrors.WrapWithContext(err, ferrors.CodeNotFound,
				"revision not found", map[string]any{"before": before, "after": after})
		}
		return nil, err
	}
	return entries, nil
}
