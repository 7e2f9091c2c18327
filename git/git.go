// Package git provides the local-repository side of change dispatch and source
// fetching. It wraps go-git to compute the changed files between two revisions
// and to check out a tracked branch, operating through a go-billy filesystem so
// the same code runs against the OS or an in-memory tree.
package git

import (
	"context"
	"fmt"

	gobilly "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

const (
	// DefaultStorerCacheSize is the default object cache size in KiB.
	DefaultStorerCacheSize = 1024

	// DefaultWorkdir is the default worktree directory name.
	DefaultWorkdir = "."
)

// Options configures repository discovery and creation.
type Options struct {
	// FS is the REQUIRED filesystem root. All repository state lives within it.
	FS gobilly.Filesystem

	// Workdir is the path within FS for the worktree root.
	// Defaults to "." (root of FS).
	Workdir string

	// Bare indicates a repository without worktree.
	Bare bool

	// StorerCacheSize sets the object cache size in KiB.
	// Defaults to DefaultStorerCacheSize.
	StorerCacheSize int

	// ShallowDepth limits clone depth when > 0.
	ShallowDepth int

	// Auth authenticates clones. Nil clones anonymously.
	Auth transport.AuthMethod
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.FS == nil {
		return WrapError(ErrInvalidOptions, "FS is required")
	}
	if o.StorerCacheSize < 0 {
		return WrapError(ErrInvalidOptions, "StorerCacheSize cannot be negative")
	}
	if o.ShallowDepth < 0 {
		return WrapError(ErrInvalidOptions, "ShallowDepth cannot be negative")
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.Workdir == "" {
		o.Workdir = DefaultWorkdir
	}
	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = DefaultStorerCacheSize
	}
}

// storage returns the object storage and worktree filesystem for the options.
func (o *Options) storage() (*filesystem.Storage, gobilly.Filesystem, error) {
	scopedFS, err := o.FS.Chroot(o.Workdir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to chroot to workdir %q: %w", o.Workdir, err)
	}

	objectCache := cache.NewObjectLRU(cache.FileSize(o.StorerCacheSize) * cache.KiByte)
	if o.Bare {
		return filesystem.NewStorage(scopedFS, objectCache), nil, nil
	}

	dotGitFS, err := scopedFS.Chroot(git.GitDirName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access %s directory: %w", git.GitDirName, err)
	}
	return filesystem.NewStorage(dotGitFS, objectCache), scopedFS, nil
}

// Repo is a git repository opened for diffing and checkout.
type Repo struct {
	repo     *git.Repository
	worktree *git.Worktree
	options  Options
}

// Init creates a new repository. It is mostly used to seed test fixtures.
func Init(ctx context.Context, opts *Options) (*Repo, error) {
	return openWith(ctx, opts, func(s *filesystem.Storage, wt gobilly.Filesystem) (*git.Repository, error) {
		return git.Init(s, wt)
	})
}

// Open opens an existing repository at the configured workdir.
func Open(ctx context.Context, opts *Options) (*Repo, error) {
	return openWith(ctx, opts, func(s *filesystem.Storage, wt gobilly.Filesystem) (*git.Repository, error) {
		r, err := git.Open(s, wt)
		if err != nil {
			return nil, WrapError(ErrRepositoryMissing, err.Error())
		}
		return r, nil
	})
}

// Clone checks out branch of remoteURL into the configured workdir. Only the
// requested branch is fetched.
func Clone(ctx context.Context, remoteURL, branch string, opts *Options) (*Repo, error) {
	if remoteURL == "" {
		return nil, WrapError(ErrInvalidRef, "remote URL cannot be empty")
	}
	if branch == "" {
		return nil, WrapError(ErrInvalidRef, "branch cannot be empty")
	}

	return openWith(ctx, opts, func(s *filesystem.Storage, wt gobilly.Filesystem) (*git.Repository, error) {
		r, err := git.CloneContext(ctx, s, wt, &git.CloneOptions{
			URL:           remoteURL,
			ReferenceName: plumbing.NewBranchReferenceName(branch),
			SingleBranch:  true,
			Depth:         opts.ShallowDepth,
			Auth:          opts.Auth,
		})
		if err != nil {
			return nil, WrapErrorf(ErrBranchMissing, "failed to clone %s@%s: %v", remoteURL, branch, err)
		}
		return r, nil
	})
}

func openWith(
	ctx context.Context,
	opts *Options,
	fn func(*filesystem.Storage, gobilly.Filesystem) (*git.Repository, error),
) (*Repo, error) {
	if opts == nil {
		return nil, WrapError(ErrInvalidOptions, "options cannot be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts.applyDefaults()

	storage, worktreeFS, err := opts.storage()
	if err != nil {
		return nil, err
	}

	repo, err := fn(storage, worktreeFS)
	if err != nil {
		return nil, err
	}

	r := &Repo{repo: repo, options: *opts}
	if !opts.Bare {
		worktree, err := repo.Worktree()
		if err != nil {
			return nil, WrapError(err, "failed to get worktree")
		}
		r.worktree = worktree
	}
	return r, nil
}

// ResolveRevision resolves any revision specifier (hash, branch, HEAD~1, ...)
// to a full commit hash.
func (r *Repo) ResolveRevision(rev string) (string, error) {
	if rev == "" {
		return "", WrapError(ErrInvalidRef, "revision cannot be empty")
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", WrapErrorf(ErrResolveFailed, "revision %q", rev)
	}
	return hash.String(), nil
}

// Head returns the commit hash HEAD points at.
func (r *Repo) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", WrapError(ErrResolveFailed, "HEAD")
	}
	return ref.Hash().String(), nil
}
