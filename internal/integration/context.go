package integration

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"vbranch.dev/vbranch/internal/git"
	"vbranch.dev/vbranch/internal/workspace"
)

// Context snapshots the inputs of one integration round: the old and new
// baseline commits and the branches currently applied to the workspace. The
// write guard must stay held for the context's lifetime so the snapshot
// cannot be invalidated mid-round.
type Context struct {
	repo      *git.Repository
	oldTarget *object.Commit
	newTarget *object.Commit
	branches  []workspace.VirtualBranch

	guard *workspace.WriteGuard
}

// Open reads the current upstream target record, resolves the target branch
// reference to the new baseline and the recorded sha to the old baseline,
// and lists the branches applied to the workspace.
func Open(repo *git.Repository, state *workspace.State, guard *workspace.WriteGuard) (*Context, error) {
	newTarget, err := repo.ResolveRef(state.Target.BranchRef)
	if err != nil {
		return nil, err
	}
	oldTarget, err := repo.Commit(state.Target.Sha)
	if err != nil {
		return nil, err
	}

	return &Context{
		repo:      repo,
		oldTarget: oldTarget,
		newTarget: newTarget,
		branches:  state.ListInWorkspace(),
		guard:     guard,
	}, nil
}

// NewContext assembles a context from already-resolved parts. Used by tests
// and by callers that manage target resolution themselves.
func NewContext(repo *git.Repository, oldTarget, newTarget *object.Commit, branches []workspace.VirtualBranch, guard *workspace.WriteGuard) *Context {
	return &Context{
		repo:      repo,
		oldTarget: oldTarget,
		newTarget: newTarget,
		branches:  branches,
		guard:     guard,
	}
}

// NewTarget returns the new baseline commit id
func (c *Context) NewTarget() plumbing.Hash {
	return c.newTarget.Hash
}

// OldTarget returns the old baseline commit id
func (c *Context) OldTarget() plumbing.Hash {
	return c.oldTarget.Hash
}
