package integration

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	"vbranch.dev/vbranch/internal/errors"
	"vbranch.dev/vbranch/internal/git"
	"vbranch.dev/vbranch/internal/workspace"
)

// ResultKind discriminates what the executor decided for one branch
type ResultKind int

const (
	// ResultUpdatedObjects carries new head/tree ids to assign to the branch
	ResultUpdatedObjects ResultKind = iota
	// ResultUnapplyBranch removes the branch from the workspace, keeping its record
	ResultUnapplyBranch
	// ResultDeleteBranch discards the branch entirely; upstream subsumed it
	ResultDeleteBranch
)

// Result is the executor's output for one branch
type Result struct {
	BranchID uuid.UUID
	Kind     ResultKind

	// Head and Tree are only set for ResultUpdatedObjects
	Head plumbing.Hash
	Tree plumbing.Hash
}

// Validate checks a resolution set against a freshly recomputed status set.
// This is the optimistic-concurrency guard between decide and act: any
// mismatch forces the caller to re-query before integrating.
func Validate(ctx *Context, resolutions []Resolution) error {
	statuses, err := Statuses(ctx)
	if err != nil {
		return err
	}
	if statuses.UpToDate {
		return errors.ErrAlreadyUpToDate
	}

	if len(resolutions) != len(statuses.Statuses) {
		return &errors.ResolutionCountError{
			Resolutions: len(resolutions),
			Statuses:    len(statuses.Statuses),
		}
	}

	byBranch := make(map[uuid.UUID]BranchStatus, len(statuses.Statuses))
	for _, entry := range statuses.Statuses {
		byBranch[entry.BranchID] = entry.Status
	}

	for _, resolution := range resolutions {
		status, ok := byBranch[resolution.BranchID]
		if !ok || !resolution.Resolution.MatchesStatus(status) {
			return &errors.StaleResolutionError{BranchID: resolution.BranchID.String()}
		}
	}

	return nil
}

// Integrate validates a resolution set and executes it, returning one result
// per resolution in input order. Validation failure leaves no side effects;
// execution only ever creates objects, so a failed round never corrupts the
// store.
func Integrate(ctx *Context, resolutions []Resolution) ([]Result, error) {
	if err := Validate(ctx, resolutions); err != nil {
		return nil, err
	}
	return computeResolutions(ctx, resolutions)
}

func computeResolutions(ctx *Context, resolutions []Resolution) ([]Result, error) {
	results := make([]Result, 0, len(resolutions))

	for _, resolution := range resolutions {
		branch, err := ctx.findBranch(resolution.BranchID)
		if err != nil {
			return nil, err
		}

		result, err := executeResolution(ctx, branch, resolution.Resolution)
		if err != nil {
			return nil, fmt.Errorf("failed to integrate branch %s: %w", branch.ID, err)
		}
		result.BranchID = branch.ID
		results = append(results, result)
	}

	return results, nil
}

func (c *Context) findBranch(id uuid.UUID) (workspace.VirtualBranch, error) {
	for _, branch := range c.branches {
		if branch.ID == id {
			return branch, nil
		}
	}
	return workspace.VirtualBranch{}, errors.NewNotFoundError("virtual branch", id.String())
}

func executeResolution(ctx *Context, branch workspace.VirtualBranch, resolution StatusResolution) (Result, error) {
	if resolution.Kind == StatusFullyIntegrated {
		return Result{Kind: ResultDeleteBranch}, nil
	}

	switch resolution.Approach {
	case ApproachUnapply:
		return Result{Kind: ResultUnapplyBranch}, nil
	case ApproachRebase:
		return rebaseBranch(ctx, branch)
	case ApproachMerge:
		return mergeBranch(ctx, branch)
	default:
		return Result{}, fmt.Errorf("%w: approach %d", errors.ErrUnsupportedApproach, resolution.Approach)
	}
}

// rebaseBranch replays the branch's committed history onto the new baseline,
// then replays the working-copy delta on top. Conflicted steps are committed
// as materialized conflicts rather than aborting, so a conflicted branch
// still comes out of the round with usable history.
func rebaseBranch(ctx *Context, branch workspace.VirtualBranch) (Result, error) {
	commits, err := ctx.repo.LogUntil(branch.Head, ctx.newTarget.Hash)
	if err != nil {
		return Result{}, err
	}

	newHead, err := ctx.repo.CherryRebaseGroup(ctx.newTarget.Hash, commits, true)
	if err != nil {
		return Result{}, err
	}

	return rebaseWorkingTree(ctx, branch, newHead)
}

// mergeBranch is the merge-based resolution: a merge commit combines the
// upstream advance with the branch's existing commits, then the working tree
// is rebased on top of it.
//
// Experimental: the rebase approach is the well-trodden path; prefer it
// unless the branch's published history must be preserved.
func mergeBranch(ctx *Context, branch workspace.VirtualBranch) (Result, error) {
	repo := ctx.repo

	oldTargetTree, err := repo.RealTree(ctx.oldTarget)
	if err != nil {
		return Result{}, err
	}
	newTargetTree, err := repo.RealTree(ctx.newTarget)
	if err != nil {
		return Result{}, err
	}
	head, err := repo.Commit(branch.Head)
	if err != nil {
		return Result{}, err
	}
	headTree, err := repo.RealTree(head)
	if err != nil {
		return Result{}, err
	}

	merge, err := repo.MergeTrees(oldTargetTree, newTargetTree, headTree)
	if err != nil {
		return Result{}, err
	}

	var mergedTree plumbing.Hash
	if merge.HasConflicts() {
		mergedTree, err = repo.WriteConflictedTree(merge)
	} else {
		mergedTree, err = merge.WriteTreeTo(repo)
	}
	if err != nil {
		return Result{}, err
	}

	signature := git.SystemSignature()
	message := fmt.Sprintf("Merge %s into %s", ctx.newTarget.Hash.String()[:7], branch.Name)
	newHead, err := repo.CreateCommit(mergedTree, []plumbing.Hash{branch.Head, ctx.newTarget.Hash}, signature, signature, message)
	if err != nil {
		return Result{}, err
	}

	return rebaseWorkingTree(ctx, branch, newHead)
}

// rebaseWorkingTree materializes the branch's working-copy delta as a
// synthetic commit parented on the original head and replays it onto the
// rebased history. A conflicted outcome is reported through the commit's
// conflict-resolution tree so the branch's working tree reflects it.
func rebaseWorkingTree(ctx *Context, branch workspace.VirtualBranch, newHead plumbing.Hash) (Result, error) {
	repo := ctx.repo

	signature := git.SystemSignature()
	committedTree, err := repo.CreateCommit(branch.Tree, []plumbing.Hash{branch.Head}, signature, signature, "Uncommitted changes")
	if err != nil {
		return Result{}, err
	}

	newCommittedHash, err := repo.CherryRebaseGroup(newHead, []plumbing.Hash{committedTree}, true)
	if err != nil {
		return Result{}, err
	}
	newCommitted, err := repo.Commit(newCommittedHash)
	if err != nil {
		return Result{}, err
	}

	conflicted, err := repo.IsConflicted(newCommitted)
	if err != nil {
		return Result{}, err
	}
	if conflicted {
		realTree, err := repo.RealTree(newCommitted)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Kind: ResultUpdatedObjects,
			Head: newCommitted.Hash,
			Tree: realTree.Hash,
		}, nil
	}

	return Result{
		Kind: ResultUpdatedObjects,
		Head: newHead,
		Tree: newCommitted.TreeHash,
	}, nil
}
