package integration

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	"vbranch.dev/vbranch/internal/workspace"
)

// Apply folds executor results back into the workspace state and advances
// the recorded baseline to the new target. It must run under the same write
// guard as the round that produced the results.
func Apply(state *workspace.State, results []Result, newTarget plumbing.Hash, guard *workspace.WriteGuard) error {
	for _, result := range results {
		var err error
		switch result.Kind {
		case ResultUpdatedObjects:
			err = state.UpdateBranchObjects(result.BranchID, result.Head, result.Tree, guard)
		case ResultUnapplyBranch:
			err = state.UnapplyBranch(result.BranchID, guard)
		case ResultDeleteBranch:
			err = state.RemoveBranch(result.BranchID, guard)
		default:
			err = fmt.Errorf("unknown integration result kind %d", result.Kind)
		}
		if err != nil {
			return fmt.Errorf("failed to apply result for branch %s: %w", result.BranchID, err)
		}
	}

	state.SetTargetSha(newTarget, guard)
	return nil
}
