// Package gitlocal reads a local git checkout: the files changed by the
// current branch, file contents at another revision and file commit times.
package gitlocal

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotFound is returned when a path does not exist at the requested revision.
var ErrNotFound = errors.New("path not found at revision")

// Checkout is an opened repository with its worktree root.
type Checkout struct {
	repo *git.Repository
	root string
}

// Open opens the repository containing dir, walking up to find the .git directory.
func Open(dir string) (*Checkout, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %q: %w", dir, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	return &Checkout{repo: repo, root: worktree.Filesystem.Root()}, nil
}

// Root is the absolute worktree root.
func (c *Checkout) Root() string {
	return c.root
}

// Rel converts a filesystem path into a slash-separated worktree-relative path.
func (c *Checkout) Rel(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(c.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (c *Checkout) commit(rev string) (*object.Commit, error) {
	hash, err := c.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	commit, err := c.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	return commit, nil
}

// ReadAt returns the content of relPath at the given revision. A branch
// missing locally is looked up on the origin remote.
func (c *Checkout) ReadAt(rev, relPath string) ([]byte, error) {
	commit, err := c.commit(rev)
	if err != nil {
		remote, remoteErr := c.commit("refs/remotes/origin/" + rev)
		if remoteErr != nil {
			return nil, err
		}
		commit = remote
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree of %s: %w", rev, err)
	}
	file, err := tree.File(relPath)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, relPath, rev)
		}
		return nil, fmt.Errorf("failed to read %s@%s: %w", relPath, rev, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s@%s: %w", relPath, rev, err)
	}
	return []byte(content), nil
}

// LastCommitTime returns the committer time of the newest commit touching relPath.
func (c *Checkout) LastCommitTime(relPath string) (time.Time, error) {
	head, err := c.repo.Head()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	iter, err := c.repo.Log(&git.LogOptions{From: head.Hash(), FileName: &relPath})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read log of %q: %w", relPath, err)
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: no commit touches %s", ErrNotFound, relPath)
	}
	return commit.Committer.When, nil
}

// resolveBase finds the branch to compare against, preferring the remote-tracking ref.
func (c *Checkout) resolveBase(branch string) (*object.Commit, error) {
	candidates := []string{"refs/remotes/origin/" + branch, branch}
	var errs []error
	for _, rev := range candidates {
		commit, err := c.commit(rev)
		if err == nil {
			return commit, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// Changed lists files that differ between the merge base with branch and HEAD,
// plus the uncommitted worktree changes.
func (c *Checkout) Changed(branch string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			files = append(files, name)
		}
	}

	if branch != "" {
		head, err := c.commit("HEAD")
		if err != nil {
			return nil, err
		}
		base, err := c.resolveBase(branch)
		if err != nil {
			return nil, err
		}
		if bases, mergeErr := head.MergeBase(base); mergeErr == nil && len(bases) > 0 {
			base = bases[0]
		}
		baseTree, err := base.Tree()
		if err != nil {
			return nil, fmt.Errorf("failed to load base tree: %w", err)
		}
		headTree, err := head.Tree()
		if err != nil {
			return nil, fmt.Errorf("failed to load HEAD tree: %w", err)
		}
		changes, err := object.DiffTree(baseTree, headTree)
		if err != nil {
			return nil, fmt.Errorf("failed to diff %s against HEAD: %w", branch, err)
		}
		for _, change := range changes {
			add(change.From.Name)
			add(change.To.Name)
		}
	}

	worktree, err := c.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}
	for name, fileStatus := range status {
		if fileStatus.Staging != git.Unmodified || fileStatus.Worktree != git.Unmodified {
			add(name)
		}
	}
	return files, nil
}
