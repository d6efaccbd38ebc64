package integration

import (
	"encoding/json"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"

	"vbranch.dev/vbranch/internal/git"
	"vbranch.dev/vbranch/internal/workspace"
)

// StatusKind classifies one branch relative to the baseline pair
type StatusKind int

const (
	// StatusEmpty indicates the branch carries no work relative to the old baseline
	StatusEmpty StatusKind = iota
	// StatusFullyIntegrated indicates the new baseline already contains everything the branch has
	StatusFullyIntegrated
	// StatusConflicted indicates the branch's changes conflict with the upstream advance
	StatusConflicted
	// StatusSafelyUpdatable indicates the branch merges cleanly but still differs from the new baseline
	StatusSafelyUpdatable
)

// BranchStatus is the derived classification of one branch. It is computed
// fresh on every query and never cached: the baseline pair or branch set may
// have changed between calls.
type BranchStatus struct {
	Kind StatusKind
	// PotentiallyConflictedUncommittedChanges is only meaningful for
	// StatusConflicted: the uncommitted layer may carry conflicts of its own.
	PotentiallyConflictedUncommittedChanges bool
}

// NamedStatus pairs a branch id with its status, preserving workspace
// listing order
type NamedStatus struct {
	BranchID uuid.UUID
	Status   BranchStatus
}

// BranchStatuses is the result of one classification round
type BranchStatuses struct {
	UpToDate bool
	Statuses []NamedStatus
}

// Statuses classifies every workspace branch against the baseline pair.
//
// Any lookup or merge failure aborts the whole round: UpdatesRequired always
// reflects the complete and consistent branch set, never partial results.
func Statuses(ctx *Context) (BranchStatuses, error) {
	if ctx.newTarget.Hash == ctx.oldTarget.Hash {
		return BranchStatuses{UpToDate: true}, nil
	}

	oldTargetTree, err := ctx.repo.RealTree(ctx.oldTarget)
	if err != nil {
		return BranchStatuses{}, err
	}
	newTargetTree, err := ctx.repo.RealTree(ctx.newTarget)
	if err != nil {
		return BranchStatuses{}, err
	}

	statuses := []NamedStatus{}
	for _, branch := range ctx.branches {
		status, err := classify(ctx.repo, branch, ctx.oldTarget, oldTargetTree, newTargetTree)
		if err != nil {
			return BranchStatuses{}, fmt.Errorf("failed to classify branch %s: %w", branch.ID, err)
		}
		statuses = append(statuses, NamedStatus{BranchID: branch.ID, Status: status})
	}

	return BranchStatuses{Statuses: statuses}, nil
}

func classify(repo *git.Repository, branch workspace.VirtualBranch, oldTarget *object.Commit, oldTargetTree, newTargetTree *object.Tree) (BranchStatus, error) {
	tree, err := repo.Tree(branch.Tree)
	if err != nil {
		return BranchStatus{}, err
	}
	head, err := repo.Commit(branch.Head)
	if err != nil {
		return BranchStatus{}, err
	}
	headTree, err := repo.RealTree(head)
	if err != nil {
		return BranchStatus{}, err
	}

	hasCommits := branch.Head != oldTarget.Hash
	hasUncommittedChanges := headTree.Hash != tree.Hash

	if !hasCommits && !hasUncommittedChanges {
		return BranchStatus{Kind: StatusEmpty}, nil
	}

	headMerge, err := repo.MergeTrees(oldTargetTree, newTargetTree, headTree)
	if err != nil {
		return BranchStatus{}, err
	}
	treeMerge, err := repo.MergeTrees(oldTargetTree, newTargetTree, tree)
	if err != nil {
		return BranchStatus{}, err
	}

	commitsConflicted := headMerge.HasConflicts()

	// Conflicted committed history guarantees a conflicted uncommitted layer;
	// no need to inspect the tree merge in that case.
	potentiallyConflicted := false
	if hasUncommittedChanges {
		potentiallyConflicted = commitsConflicted || treeMerge.HasConflicts()
	}

	if commitsConflicted || potentiallyConflicted {
		return BranchStatus{
			Kind:                                    StatusConflicted,
			PotentiallyConflictedUncommittedChanges: potentiallyConflicted,
		}, nil
	}

	// The tree merge is unconflicted here, so it is safe to write out.
	// Identical trees share an id, so integration is a hash comparison.
	mergedTree, err := treeMerge.WriteTreeTo(repo)
	if err != nil {
		return BranchStatus{}, err
	}
	if mergedTree == newTargetTree.Hash {
		return BranchStatus{Kind: StatusFullyIntegrated}, nil
	}

	return BranchStatus{Kind: StatusSafelyUpdatable}, nil
}

const (
	statusTypeEmpty           = "empty"
	statusTypeFullyIntegrated = "fullyIntegrated"
	statusTypeConflicted      = "conflicted"
	statusTypeSafelyUpdatable = "safelyUpdatable"

	statusesTypeUpToDate        = "upToDate"
	statusesTypeUpdatesRequired = "updatesRequired"
)

type taggedUnion struct {
	Type    string          `json:"type"`
	Subject json.RawMessage `json:"subject,omitempty"`
}

type conflictedSubject struct {
	PotentiallyConflictedUncommittedChanges bool `json:"potentiallyConflictedUncommittedChanges"`
}

type namedStatusJSON struct {
	BranchID uuid.UUID    `json:"branchId"`
	Status   BranchStatus `json:"status"`
}

// MarshalJSON encodes the status as a type/subject tagged union
func (s BranchStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StatusEmpty:
		return json.Marshal(taggedUnion{Type: statusTypeEmpty})
	case StatusFullyIntegrated:
		return json.Marshal(taggedUnion{Type: statusTypeFullyIntegrated})
	case StatusSafelyUpdatable:
		return json.Marshal(taggedUnion{Type: statusTypeSafelyUpdatable})
	case StatusConflicted:
		subject, err := json.Marshal(conflictedSubject{
			PotentiallyConflictedUncommittedChanges: s.PotentiallyConflictedUncommittedChanges,
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(taggedUnion{Type: statusTypeConflicted, Subject: subject})
	default:
		return nil, fmt.Errorf("unknown branch status kind %d", s.Kind)
	}
}

// UnmarshalJSON decodes the type/subject tagged-union form
func (s *BranchStatus) UnmarshalJSON(data []byte) error {
	var raw taggedUnion
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case statusTypeEmpty:
		*s = BranchStatus{Kind: StatusEmpty}
	case statusTypeFullyIntegrated:
		*s = BranchStatus{Kind: StatusFullyIntegrated}
	case statusTypeSafelyUpdatable:
		*s = BranchStatus{Kind: StatusSafelyUpdatable}
	case statusTypeConflicted:
		var subject conflictedSubject
		if len(raw.Subject) > 0 {
			if err := json.Unmarshal(raw.Subject, &subject); err != nil {
				return err
			}
		}
		*s = BranchStatus{
			Kind:                                    StatusConflicted,
			PotentiallyConflictedUncommittedChanges: subject.PotentiallyConflictedUncommittedChanges,
		}
	default:
		return fmt.Errorf("unknown branch status type %q", raw.Type)
	}
	return nil
}

// MarshalJSON encodes the round result as a type/subject tagged union
func (s BranchStatuses) MarshalJSON() ([]byte, error) {
	if s.UpToDate {
		return json.Marshal(taggedUnion{Type: statusesTypeUpToDate})
	}
	entries := make([]namedStatusJSON, 0, len(s.Statuses))
	for _, entry := range s.Statuses {
		entries = append(entries, namedStatusJSON{BranchID: entry.BranchID, Status: entry.Status})
	}
	subject, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedUnion{Type: statusesTypeUpdatesRequired, Subject: subject})
}

// UnmarshalJSON decodes the type/subject tagged-union form
func (s *BranchStatuses) UnmarshalJSON(data []byte) error {
	var raw taggedUnion
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case statusesTypeUpToDate:
		*s = BranchStatuses{UpToDate: true}
	case statusesTypeUpdatesRequired:
		var entries []namedStatusJSON
		if len(raw.Subject) > 0 {
			if err := json.Unmarshal(raw.Subject, &entries); err != nil {
				return err
			}
		}
		statuses := make([]NamedStatus, 0, len(entries))
		for _, entry := range entries {
			statuses = append(statuses, NamedStatus{BranchID: entry.BranchID, Status: entry.Status})
		}
		*s = BranchStatuses{Statuses: statuses}
	default:
		return fmt.Errorf("unknown branch statuses type %q", raw.Type)
	}
	return nil
}
