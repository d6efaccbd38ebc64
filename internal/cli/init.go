package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vbranch.dev/vbranch/internal/git"
	"vbranch.dev/vbranch/internal/workspace"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var (
		remote string
		branch string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the workspace against an upstream target branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(".")
			if err != nil {
				return fmt.Errorf("not a git repository: %w", err)
			}

			if _, err := workspace.LoadState(repo.Root()); err == nil {
				return fmt.Errorf("workspace already initialized")
			}

			branchRef := fmt.Sprintf("refs/remotes/%s/%s", remote, branch)
			target, err := repo.ResolveRef(branchRef)
			if err != nil {
				return fmt.Errorf("failed to resolve target branch %s: %w", branchRef, err)
			}

			state := &workspace.State{
				Target: workspace.Target{
					BranchRef: branchRef,
					Remote:    remote,
					Sha:       target.Hash,
				},
			}
			if err := state.Save(repo.Root()); err != nil {
				return err
			}

			splog := newSplog(repo)
			defer splog.Close()
			splog.Info("Initialized workspace against %s at %s", branchRef, target.Hash.String()[:7])
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "origin", "name of the upstream remote")
	cmd.Flags().StringVar(&branch, "branch", "main", "name of the target branch on the remote")

	return cmd
}
