package git

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

func pathsOf(entries []domain.FileDiffEntry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths
}

func TestDifferences(t *testing.T) {
	tr := setupTestRepo(t)
	first := tr.commitFiles(t, "initial", map[string][]byte{
		"packages/frontend/app.tsx": []byte("app"),
		"packages/backend/api.ts":   []byte("api"),
	})
	second := tr.commitFiles(t, "frontend change", map[string][]byte{
		"packages/frontend/app.tsx": []byte("app v2"),
	})

	entries, err := tr.repo.Differences(tr.ctx, first, second)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "packages/frontend/app.tsx", entries[0].Path)
	assert.Equal(t, domain.ChangeKindModified, entries[0].ChangeKind)
}

func TestDifferencesAgainstEmptyTree(t *testing.T) {
	tr := setupTestRepo(t)
	head := tr.commitFiles(t, "initial", map[string][]byte{
		"a.txt":       []byte("a"),
		"stacks/b.ts": []byte("b"),
	})

	entries, err := tr.repo.Differences(tr.ctx, "", head)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "stacks/b.ts"}, pathsOf(entries))
	for _, e := range entries {
		assert.Equal(t, domain.ChangeKindAdded, e.ChangeKind)
	}
}

func TestDifferencesDeletion(t *testing.T) {
	tr := setupTestRepo(t)
	first := tr.commitFiles(t, "initial", map[string][]byte{
		"keep.txt": []byte("keep"),
		"gone.txt": []byte("gone"),
	})
	second := tr.commitFiles(t, "delete", map[string][]byte{"gone.txt": nil})

	entries, err := tr.repo.Differences(tr.ctx, first, second)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Path)
	assert.Equal(t, "gone.txt", entries[0].BeforePath)
	assert.Equal(t, domain.ChangeKindDeleted, entries[0].ChangeKind)
}

func TestDifferencesNoChanges(t *testing.T) {
	tr := setupTestRepo(t)
	head := tr.commitFiles(t, "initial", map[string][]byte{"a.txt": []byte("a")})

	entries, err := tr.repo.Differences(tr.ctx, head, head)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDifferencesWithFilters(t *testing.T) {
	tr := setupTestRepo(t)
	first := tr.commitFiles(t, "initial", map[string][]byte{"README.md": []byte("r")})
	second := tr.commitFiles(t, "mixed", map[string][]byte{
		"README.md":            []byte("r2"),
		"packages/core/x.ts":   []byte("x"),
		"packages/core/y.json": []byte("y"),
	})

	entries, err := tr.repo.Differences(tr.ctx, first, second,
		PathPrefixFilter("packages/"), ExtensionFilter(".ts"))
	require.NoError(t, err)
	assert.Equal(t, []string{"packages/core/x.ts"}, pathsOf(entries))

	entries, err = tr.repo.Differences(tr.ctx, first, second, ExcludePathPrefixFilter("packages/"))
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, pathsOf(entries))

	entries, err = tr.repo.Differences(tr.ctx, first, second,
		OrFilter(ExtensionFilter(".md"), ExtensionFilter(".json")), NotFilter(PathPrefixFilter("README")))
	require.NoError(t, err)
	assert.Equal(t, []string{"packages/core/y.json"}, pathsOf(entries))
}

func TestDifferencesUnknownRevision(t *testing.T) {
	tr := setupTestRepo(t)
	head := tr.commitFiles(t, "initial", map[string][]byte{"a.txt": []byte("a")})

	_, err := tr.repo.Differences(tr.ctx, "0123456789012345678901234567890123456789", head)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolveFailed)

	_, err = tr.repo.Differences(tr.ctx, head, "")
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestProvider(t *testing.T) {
	tr := setupTestRepo(t)
	first := tr.commitFiles(t, "initial", map[string][]byte{"a.txt": []byte("a")})
	second := tr.commitFiles(t, "next", map[string][]byte{"packages/frontend/app.tsx": []byte("x")})

	provider := NewProvider("aws-cdk-pipeline-demo", tr.repo)

	entries, err := provider.GetDifferences(tr.ctx, "aws-cdk-pipeline-demo", first, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"packages/frontend/app.tsx"}, pathsOf(entries))

	_, err = provider.GetDifferences(tr.ctx, "other-repo", first, second)
	require.Error(t, err)
	assert.True(t, ferrors.HasCode(err, ferrors.CodeNotFound))
	assert.ErrorIs(t, err, ErrRepositoryMissing)

	_, err = provider.GetDifferences(tr.ctx, "aws-cdk-pipeline-demo", "deadbeef", second)
	require.Error(t, err)
	assert.True(t, ferrors.HasCode(err, ferrors.CodeNotFound))
}

func TestOptionsValidate(t *testing.T) {
	assert.ErrorIs(t, (&Options{}).Validate(), ErrInvalidOptions)
	assert.ErrorIs(t, (&Options{FS: memfs.New(), StorerCacheSize: -1}).Validate(), ErrInvalidOptions)
	assert.ErrorIs(t, (&Options{FS: memfs.New(), ShallowDepth: -1}).Validate(), ErrInvalidOptions)
	assert.NoError(t, (&Options{FS: memfs.New()}).Validate())
}

func TestResolveRevisionAndHead(t *testing.T) {
	tr := setupTestRepo(t)
	first := tr.commitFiles(t, "initial", map[string][]byte{"a.txt": []byte("a")})
	second := tr.commitFiles(t, "next", map[string][]byte{"a.txt": []byte("b")})

	head, err := tr.repo.Head()
	require.NoError(t, err)
	assert.Equal(t, second, head)

	parent, err := tr.repo.ResolveRevision("HEAD~1")
	require.NoError(t, err)
	assert.Equal(t, first, parent)

	_, err = tr.repo.ResolveRevision("no-such-branch")
	assert.ErrorIs(t, err, ErrResolveFailed)
}
