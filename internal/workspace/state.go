package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	"vbranch.dev/vbranch/internal/errors"
)

const stateFileName = ".vbranch_workspace"

// State holds the persisted workspace metadata: the upstream target record
// and every virtual branch the workspace knows about.
type State struct {
	Target   Target
	Branches []VirtualBranch
}

type stateFile struct {
	Target   targetRecord   `json:"target"`
	Branches []branchRecord `json:"branches"`
}

type targetRecord struct {
	BranchRef string `json:"branchRef"`
	Remote    string `json:"remote"`
	Sha       string `json:"sha"`
}

type branchRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Head        string `json:"head"`
	Tree        string `json:"tree"`
	Order       int    `json:"order"`
	InWorkspace bool   `json:"inWorkspace"`
	CreatedAt   int64  `json:"createdTimestampMs"`
	UpdatedAt   int64  `json:"updatedTimestampMs"`
}

func statePath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", stateFileName)
}

// LoadState reads the workspace state file. A missing file is an error: the
// workspace must be initialized with a target before integrating.
func LoadState(repoRoot string) (*State, error) {
	data, err := os.ReadFile(statePath(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("workspace state", statePath(repoRoot))
		}
		return nil, fmt.Errorf("failed to read workspace state: %w", err)
	}

	var file stateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse workspace state: %w", err)
	}

	state := &State{
		Target: Target{
			BranchRef: file.Target.BranchRef,
			Remote:    file.Target.Remote,
			Sha:       plumbing.NewHash(file.Target.Sha),
		},
	}
	for _, record := range file.Branches {
		id, err := uuid.Parse(record.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse branch id %q: %w", record.ID, err)
		}
		state.Branches = append(state.Branches, VirtualBranch{
			ID:          id,
			Name:        record.Name,
			Head:        plumbing.NewHash(record.Head),
			Tree:        plumbing.NewHash(record.Tree),
			Order:       record.Order,
			InWorkspace: record.InWorkspace,
			CreatedAt:   time.UnixMilli(record.CreatedAt),
			UpdatedAt:   time.UnixMilli(record.UpdatedAt),
		})
	}
	return state, nil
}

// Save writes the workspace state file
func (s *State) Save(repoRoot string) error {
	file := stateFile{
		Target: targetRecord{
			BranchRef: s.Target.BranchRef,
			Remote:    s.Target.Remote,
			Sha:       s.Target.Sha.String(),
		},
		Branches: []branchRecord{},
	}
	for _, branch := range s.Branches {
		file.Branches = append(file.Branches, branchRecord{
			ID:          branch.ID.String(),
			Name:        branch.Name,
			Head:        branch.Head.String(),
			Tree:        branch.Tree.String(),
			Order:       branch.Order,
			InWorkspace: branch.InWorkspace,
			CreatedAt:   branch.CreatedAt.UnixMilli(),
			UpdatedAt:   branch.UpdatedAt.UnixMilli(),
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workspace state: %w", err)
	}
	if err := os.WriteFile(statePath(repoRoot), data, 0600); err != nil {
		return fmt.Errorf("failed to write workspace state: %w", err)
	}
	return nil
}

// ListInWorkspace returns the branches currently applied to the workspace,
// in stable listing order
func (s *State) ListInWorkspace() []VirtualBranch {
	var branches []VirtualBranch
	for _, branch := range s.Branches {
		if branch.InWorkspace {
			branches = append(branches, branch)
		}
	}
	return branches
}

// GetBranch returns the branch with the given id
func (s *State) GetBranch(id uuid.UUID) (VirtualBranch, error) {
	for _, branch := range s.Branches {
		if branch.ID == id {
			return branch, nil
		}
	}
	return VirtualBranch{}, errors.NewNotFoundError("virtual branch", id.String())
}

// UpsertBranch adds or replaces a branch entry
func (s *State) UpsertBranch(branch VirtualBranch) {
	for i := range s.Branches {
		if s.Branches[i].ID == branch.ID {
			branch.UpdatedAt = time.Now()
			s.Branches[i] = branch
			return
		}
	}
	s.Branches = append(s.Branches, branch)
}

// UpdateBranchObjects repoints a branch's head and working tree. Requires
// the workspace write permission.
func (s *State) UpdateBranchObjects(id uuid.UUID, head, tree plumbing.Hash, _ *WriteGuard) error {
	for i := range s.Branches {
		if s.Branches[i].ID == id {
			s.Branches[i].Head = head
			s.Branches[i].Tree = tree
			s.Branches[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return errors.NewNotFoundError("virtual branch", id.String())
}

// UnapplyBranch removes a branch from the workspace but keeps its record.
// Requires the workspace write permission.
func (s *State) UnapplyBranch(id uuid.UUID, _ *WriteGuard) error {
	for i := range s.Branches {
		if s.Branches[i].ID == id {
			s.Branches[i].InWorkspace = false
			s.Branches[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return errors.NewNotFoundError("virtual branch", id.String())
}

// RemoveBranch discards a branch record entirely. Requires the workspace
// write permission.
func (s *State) RemoveBranch(id uuid.UUID, _ *WriteGuard) error {
	for i := range s.Branches {
		if s.Branches[i].ID == id {
			s.Branches = append(s.Branches[:i], s.Branches[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("virtual branch", id.String())
}

// SetTargetSha advances the recorded baseline commit. Requires the workspace
// write permission.
func (s *State) SetTargetSha(sha plumbing.Hash, _ *WriteGuard) {
	s.Target.Sha = sha
}
