package git

import (
	"context"
	"testing"
	"time"

	gobilly "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// testRepo is a helper struct that contains a test repository and its filesystem
type testRepo struct {
	repo *Repo
	fs   gobilly.Filesystem
	ctx  context.Context
}

// setupTestRepo creates a new test repository with an in-memory filesystem
func setupTestRepo(t *testing.T) *testRepo {
	t.Helper()

	ctx := context.Background()
	memFS := memfs.New()

	repo, err := Init(ctx, &Options{FS: memFS})
	require.NoError(t, err, "failed to initialize test repository")

	return &testRepo{repo: repo, fs: memFS, ctx: ctx}
}

// commitFiles writes files (nil content removes the file) and commits them,
// returning the new commit hash.
func (tr *testRepo) commitFiles(t *testing.T, msg string, files map[string][]byte) string {
	t.Helper()

	for name, content := range files {
		if content == nil {
			_, err := tr.repo.worktree.Remove(name)
			require.NoError(t, err, "failed to remove %s", name)
			continue
		}
		require.NoError(t, util.WriteFile(tr.fs, name, content, 0o644))
		_, err := tr.repo.worktree.Add(name)
		require.NoError(t, err, "failed to add %s", name)
	}

	hash, err := tr.repo.worktree.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err, "failed to commit")
	return hash.String()
}
