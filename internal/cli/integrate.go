package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vbranch.dev/vbranch/internal/integration"
)

// newIntegrateCmd creates the integrate command
func newIntegrateCmd() *cobra.Command {
	var resolutionsFile string

	cmd := &cobra.Command{
		Use:   "integrate",
		Short: "Integrate the new upstream state using a set of branch resolutions",
		Long: `Integrate the new upstream state using a set of branch resolutions.

Resolutions are read as JSON from --file, or from stdin when no file is
given. The set must contain exactly one resolution per applied branch and
must match the current statuses; run "vbranch status --json" first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolutions, err := readResolutions(cmd, resolutionsFile)
			if err != nil {
				return err
			}

			repo, state, err := openWorkspace()
			if err != nil {
				return err
			}

			splog := newSplog(repo)
			defer splog.Close()

			guard := workspaceAccess.LockWorktree()
			defer guard.Release()

			ctx, err := integration.Open(repo, state, guard)
			if err != nil {
				return err
			}

			results, err := integration.Integrate(ctx, resolutions)
			if err != nil {
				return err
			}

			if err := integration.Apply(state, results, ctx.NewTarget(), guard); err != nil {
				return err
			}
			if err := state.Save(repo.Root()); err != nil {
				return err
			}

			for _, result := range results {
				switch result.Kind {
				case integration.ResultUpdatedObjects:
					splog.Info("Updated branch %s to %s", result.BranchID, result.Head.String()[:7])
				case integration.ResultUnapplyBranch:
					splog.Info("Unapplied branch %s", result.BranchID)
				case integration.ResultDeleteBranch:
					splog.Info("Deleted integrated branch %s", result.BranchID)
				}
			}
			splog.Info("Workspace now targets %s", ctx.NewTarget().String()[:7])
			return nil
		},
	}

	cmd.Flags().StringVarP(&resolutionsFile, "file", "f", "", "read resolutions from this JSON file instead of stdin")

	return cmd
}

func readResolutions(cmd *cobra.Command, path string) ([]integration.Resolution, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read resolutions: %w", err)
	}

	var resolutions []integration.Resolution
	if err := json.Unmarshal(data, &resolutions); err != nil {
		return nil, fmt.Errorf("failed to parse resolutions: %w", err)
	}
	return resolutions, nil
}
