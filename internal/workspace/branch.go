package workspace

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"
)

// VirtualBranch is a workspace-tracked line of work. Head is its last
// committed state; Tree is its current working-copy snapshot, which may
// diverge from Head's tree when uncommitted changes exist.
type VirtualBranch struct {
	ID   uuid.UUID
	Name string
	Head plumbing.Hash
	Tree plumbing.Hash

	Order       int
	InWorkspace bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Target is the upstream baseline record: the branch reference the workspace
// integrates against and the commit it pointed to when last integrated.
type Target struct {
	BranchRef string
	Remote    string
	Sha       plumbing.Hash
}

// NewVirtualBranch creates a branch entry with a fresh id, applied to the
// workspace
func NewVirtualBranch(name string, head, tree plumbing.Hash) VirtualBranch {
	now := time.Now()
	return VirtualBranch{
		ID:          uuid.New(),
		Name:        name,
		Head:        head,
		Tree:        tree,
		InWorkspace: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
