// Package git reads the revision of the project a run was built from.
package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Revision identifies the commit checked out in a project directory.
type Revision struct {
	Commit string `json:"commit"`
	Branch string `json:"branch,omitempty"`
	Dirty  bool   `json:"dirty"`
}

// CurrentRevision inspects the repository containing dir. It returns nil
// without error when dir is not inside a repository or has no commits yet.
func CurrentRevision(dir string) (*Revision, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		// Unborn HEAD.
		return nil, nil
	}

	rev := &Revision{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}

	worktree, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no working tree to be dirty.
		return rev, nil
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}
	rev.Dirty = !status.IsClean()
	return rev, nil
}

// Short returns the abbreviated commit hash.
func (r *Revision) Short() string {
	if r == nil {
		return ""
	}
	if len(r.Commit) > 7 {
		return r.Commit[:7]
	}
	return r.Commit
}
