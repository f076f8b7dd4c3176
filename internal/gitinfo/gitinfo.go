// Package gitinfo reports the state of the deployment checkout's git
// repository.
package gitinfo

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Info describes the checkout's current git state.
type Info struct {
	Branch string
	Commit string
	Dirty  bool
}

// Describe opens the repository containing dir and reports its state.
func Describe(dir string) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	info := &Info{
		Commit: head.Hash().String()[:7],
	}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	} else {
		info.Branch = "detached"
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("read worktree status: %w", err)
	}
	info.Dirty = !status.IsClean()

	return info, nil
}

// String formats the info as "branch@commit" with a "+dirty" suffix when
// the worktree has local changes.
func (i *Info) String() string {
	s := fmt.Sprintf("%s@%s", i.Branch, i.Commit)
	if i.Dirty {
		s += "+dirty"
	}
	return s
}
