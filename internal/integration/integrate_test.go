package integration_test

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"vbranch.dev/vbranch/internal/errors"
	"vbranch.dev/vbranch/internal/git"
	"vbranch.dev/vbranch/internal/integration"
	"vbranch.dev/vbranch/internal/testhelper"
	"vbranch.dev/vbranch/internal/workspace"
)

// baselinePair builds the shared fixture: an upstream that advanced
// foo.txt from "baz" to "qux".
func baselinePair(t *testing.T, repo *git.Repository) (oldTarget, newTarget plumbing.Hash) {
	t.Helper()
	initial := testhelper.CommitFiles(t, repo, nil, "initial", map[string]string{"foo.txt": "bar"})
	old := testhelper.CommitFiles(t, repo, []plumbing.Hash{initial.Hash}, "old target", map[string]string{"foo.txt": "baz"})
	updated := testhelper.CommitFiles(t, repo, []plumbing.Hash{old.Hash}, "new target", map[string]string{"foo.txt": "qux"})
	return old.Hash, updated.Hash
}

func contextFor(t *testing.T, repo *git.Repository, oldTarget, newTarget plumbing.Hash, branches ...workspace.VirtualBranch) *integration.Context {
	t.Helper()
	old, err := repo.Commit(oldTarget)
	require.NoError(t, err)
	updated, err := repo.Commit(newTarget)
	require.NoError(t, err)
	return integration.NewContext(repo, old, updated, branches, nil)
}

func TestValidate(t *testing.T) {
	t.Run("fails when already up to date", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, _ := baselinePair(t, repo)

		ctx := contextFor(t, repo, oldTarget, oldTarget)
		err := integration.Validate(ctx, nil)
		require.ErrorIs(t, err, errors.ErrAlreadyUpToDate)
	})

	t.Run("rejects a resolution count mismatch", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		old, err := repo.Commit(oldTarget)
		require.NoError(t, err)
		branch := makeBranch(oldTarget, old.TreeHash)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		err = integration.Validate(ctx, nil)
		require.ErrorIs(t, err, errors.ErrResolutionMismatch)

		var countErr *errors.ResolutionCountError
		require.ErrorAs(t, err, &countErr)
		require.Equal(t, 0, countErr.Resolutions)
		require.Equal(t, 1, countErr.Statuses)
	})

	t.Run("rejects a stale resolution shape", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		old, err := repo.Commit(oldTarget)
		require.NoError(t, err)
		branch := makeBranch(oldTarget, old.TreeHash) // live status: Empty

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		err = integration.Validate(ctx, []integration.Resolution{
			{
				BranchID:   branch.ID,
				Resolution: integration.StatusResolution{Kind: integration.StatusSafelyUpdatable, Approach: integration.ApproachRebase},
			},
		})
		require.ErrorIs(t, err, errors.ErrResolutionMismatch)

		var staleErr *errors.StaleResolutionError
		require.ErrorAs(t, err, &staleErr)
	})

	t.Run("rejects a resolution for an unknown branch", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		old, err := repo.Commit(oldTarget)
		require.NoError(t, err)
		branch := makeBranch(oldTarget, old.TreeHash)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		err = integration.Validate(ctx, []integration.Resolution{
			{
				BranchID:   uuid.New(),
				Resolution: integration.StatusResolution{Kind: integration.StatusEmpty, Approach: integration.ApproachRebase},
			},
		})
		require.ErrorIs(t, err, errors.ErrResolutionMismatch)
	})

	t.Run("accepts a matching resolution set", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		old, err := repo.Commit(oldTarget)
		require.NoError(t, err)
		branch := makeBranch(oldTarget, old.TreeHash)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		err = integration.Validate(ctx, []integration.Resolution{
			{
				BranchID:   branch.ID,
				Resolution: integration.StatusResolution{Kind: integration.StatusEmpty, Approach: integration.ApproachRebase},
			},
		})
		require.NoError(t, err)
	})
}

func TestIntegrate(t *testing.T) {
	t.Run("fully integrated branch is deleted", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		updated, err := repo.Commit(newTarget)
		require.NoError(t, err)
		branch := makeBranch(newTarget, updated.TreeHash)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		results, err := integration.Integrate(ctx, []integration.Resolution{
			{BranchID: branch.ID, Resolution: integration.StatusResolution{Kind: integration.StatusFullyIntegrated}},
		})
		require.NoError(t, err)
		require.Equal(t, []integration.Result{
			{BranchID: branch.ID, Kind: integration.ResultDeleteBranch},
		}, results)
	})

	t.Run("unapply is honored for any status", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		head := testhelper.CommitFiles(t, repo, []plumbing.Hash{oldTarget}, "diverge", map[string]string{"foo.txt": "fux"})
		branch := makeBranch(head.Hash, head.TreeHash)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		results, err := integration.Integrate(ctx, []integration.Resolution{
			{BranchID: branch.ID, Resolution: integration.StatusResolution{
				Kind:     integration.StatusConflicted,
				Approach: integration.ApproachUnapply,
			}},
		})
		require.NoError(t, err)
		require.Equal(t, []integration.Result{
			{BranchID: branch.ID, Kind: integration.ResultUnapplyBranch},
		}, results)
	})

	t.Run("rebase moves a clean branch onto the new target", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		head := testhelper.CommitFiles(t, repo, []plumbing.Hash{oldTarget}, "add bar", map[string]string{"foo.txt": "baz", "bar.txt": "bar"})
		branch := makeBranch(head.Hash, head.TreeHash)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		results, err := integration.Integrate(ctx, []integration.Resolution{
			{BranchID: branch.ID, Resolution: integration.StatusResolution{
				Kind:     integration.StatusSafelyUpdatable,
				Approach: integration.ApproachRebase,
			}},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Equal(t, integration.ResultUpdatedObjects, results[0].Kind)

		newHead, err := repo.Commit(results[0].Head)
		require.NoError(t, err)
		require.Equal(t, "add bar", newHead.Message)
		require.Equal(t, []plumbing.Hash{newTarget}, newHead.ParentHashes)

		// working tree carries the rebased uncommitted delta, here none
		require.Equal(t, map[string]string{"foo.txt": "qux", "bar.txt": "bar"}, testhelper.TreeFiles(t, repo, results[0].Tree))
		require.Equal(t, newHead.TreeHash, results[0].Tree)
	})

	t.Run("rebase of an empty branch lands on the new target", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		old, err := repo.Commit(oldTarget)
		require.NoError(t, err)
		branch := makeBranch(oldTarget, old.TreeHash)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		results, err := integration.Integrate(ctx, []integration.Resolution{
			{BranchID: branch.ID, Resolution: integration.StatusResolution{
				Kind:     integration.StatusEmpty,
				Approach: integration.ApproachRebase,
			}},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Equal(t, integration.ResultUpdatedObjects, results[0].Kind)
		require.Equal(t, newTarget, results[0].Head)
		require.Equal(t, map[string]string{"foo.txt": "qux"}, testhelper.TreeFiles(t, repo, results[0].Tree))
	})

	t.Run("rebase preserves uncommitted changes", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		head := testhelper.CommitFiles(t, repo, []plumbing.Hash{oldTarget}, "add bar", map[string]string{"foo.txt": "baz", "bar.txt": "bar"})
		tree := testhelper.WriteTree(t, repo, map[string]string{"foo.txt": "baz", "bar.txt": "bar", "new.txt": "wip"})
		branch := makeBranch(head.Hash, tree)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		results, err := integration.Integrate(ctx, []integration.Resolution{
			{BranchID: branch.ID, Resolution: integration.StatusResolution{
				Kind:     integration.StatusSafelyUpdatable,
				Approach: integration.ApproachRebase,
			}},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)

		// head holds only the committed work, the working tree adds the delta
		newHead, err := repo.Commit(results[0].Head)
		require.NoError(t, err)
		require.Equal(t, map[string]string{"foo.txt": "qux", "bar.txt": "bar"}, testhelper.TreeFiles(t, repo, newHead.TreeHash))
		require.Equal(t, map[string]string{"foo.txt": "qux", "bar.txt": "bar", "new.txt": "wip"}, testhelper.TreeFiles(t, repo, results[0].Tree))
	})

	t.Run("rebase of a conflicted branch reports the conflict tree", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		// no commits, but an uncommitted edit that conflicts with upstream
		tree := testhelper.WriteTree(t, repo, map[string]string{"foo.txt": "bax"})
		branch := makeBranch(oldTarget, tree)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		results, err := integration.Integrate(ctx, []integration.Resolution{
			{BranchID: branch.ID, Resolution: integration.StatusResolution{
				Kind:                                    integration.StatusConflicted,
				Approach:                                integration.ApproachRebase,
				PotentiallyConflictedUncommittedChanges: true,
			}},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Equal(t, integration.ResultUpdatedObjects, results[0].Kind)

		newHead, err := repo.Commit(results[0].Head)
		require.NoError(t, err)
		conflicted, err := repo.IsConflicted(newHead)
		require.NoError(t, err)
		require.True(t, conflicted)

		// the reported tree is the conflict-resolution tree, not the wrapper
		realTree, err := repo.RealTree(newHead)
		require.NoError(t, err)
		require.Equal(t, realTree.Hash, results[0].Tree)
	})

	t.Run("merge approach creates a merge commit", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		head := testhelper.CommitFiles(t, repo, []plumbing.Hash{oldTarget}, "add bar", map[string]string{"foo.txt": "baz", "bar.txt": "bar"})
		branch := makeBranch(head.Hash, head.TreeHash)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		results, err := integration.Integrate(ctx, []integration.Resolution{
			{BranchID: branch.ID, Resolution: integration.StatusResolution{
				Kind:     integration.StatusSafelyUpdatable,
				Approach: integration.ApproachMerge,
			}},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Equal(t, integration.ResultUpdatedObjects, results[0].Kind)

		newHead, err := repo.Commit(results[0].Head)
		require.NoError(t, err)
		require.Equal(t, []plumbing.Hash{head.Hash, newTarget}, newHead.ParentHashes)
		require.Equal(t, map[string]string{"foo.txt": "qux", "bar.txt": "bar"}, testhelper.TreeFiles(t, repo, newHead.TreeHash))
		require.Equal(t, newHead.TreeHash, results[0].Tree)
	})

	t.Run("stale resolutions abort before any execution", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		old, err := repo.Commit(oldTarget)
		require.NoError(t, err)
		branch := makeBranch(oldTarget, old.TreeHash)

		ctx := contextFor(t, repo, oldTarget, newTarget, branch)
		_, err = integration.Integrate(ctx, []integration.Resolution{
			{BranchID: branch.ID, Resolution: integration.StatusResolution{
				Kind:     integration.StatusConflicted,
				Approach: integration.ApproachRebase,
			}},
		})
		require.ErrorIs(t, err, errors.ErrResolutionMismatch)
	})
}

func TestApply(t *testing.T) {
	t.Run("folds results into the workspace state", func(t *testing.T) {
		repo := testhelper.NewRepo(t)
		oldTarget, newTarget := baselinePair(t, repo)
		old, err := repo.Commit(oldTarget)
		require.NoError(t, err)
		updated, err := repo.Commit(newTarget)
		require.NoError(t, err)

		kept := makeBranch(oldTarget, old.TreeHash)
		unapplied := makeBranch(oldTarget, old.TreeHash)
		deleted := makeBranch(newTarget, updated.TreeHash)

		state := &workspace.State{
			Target:   workspace.Target{BranchRef: "refs/remotes/origin/main", Remote: "origin", Sha: oldTarget},
			Branches: []workspace.VirtualBranch{kept, unapplied, deleted},
		}

		access := &workspace.Access{}
		guard := access.LockWorktree()
		defer guard.Release()

		results := []integration.Result{
			{BranchID: kept.ID, Kind: integration.ResultUpdatedObjects, Head: newTarget, Tree: updated.TreeHash},
			{BranchID: unapplied.ID, Kind: integration.ResultUnapplyBranch},
			{BranchID: deleted.ID, Kind: integration.ResultDeleteBranch},
		}
		require.NoError(t, integration.Apply(state, results, newTarget, guard))

		require.Equal(t, newTarget, state.Target.Sha)

		keptBranch, err := state.GetBranch(kept.ID)
		require.NoError(t, err)
		require.Equal(t, newTarget, keptBranch.Head)
		require.Equal(t, updated.TreeHash, keptBranch.Tree)

		unappliedBranch, err := state.GetBranch(unapplied.ID)
		require.NoError(t, err)
		require.False(t, unappliedBranch.InWorkspace)

		_, err = state.GetBranch(deleted.ID)
		require.ErrorIs(t, err, errors.ErrNotFound)
	})
}
