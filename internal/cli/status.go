package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"vbranch.dev/vbranch/internal/integration"
	"vbranch.dev/vbranch/internal/workspace"
)

// workspaceAccess serializes workspace writers within this process
var workspaceAccess = &workspace.Access{}

// newStatusCmd creates the status command
func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how each applied branch relates to the new upstream state",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, state, err := openWorkspace()
			if err != nil {
				return err
			}

			guard := workspaceAccess.LockWorktree()
			defer guard.Release()

			ctx, err := integration.Open(repo, state, guard)
			if err != nil {
				return err
			}

			statuses, err := integration.Statuses(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(statuses, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			splog := newSplog(repo)
			defer splog.Close()

			if statuses.UpToDate {
				splog.Info("Workspace is up to date with %s", state.Target.BranchRef)
				return nil
			}

			splog.Info("%s moved from %s to %s", state.Target.BranchRef,
				ctx.OldTarget().String()[:7], ctx.NewTarget().String()[:7])
			for _, entry := range statuses.Statuses {
				branch, err := state.GetBranch(entry.BranchID)
				if err != nil {
					return err
				}
				line := fmt.Sprintf("  %s: %s", branch.Name, entry.Status.Kind)
				if entry.Status.Kind == integration.StatusConflicted && entry.Status.PotentiallyConflictedUncommittedChanges {
					line += " (uncommitted changes may conflict)"
				}
				splog.Info("%s", line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print statuses as JSON")

	return cmd
}
