package cli

import (
	"fmt"
	"path/filepath"

	"vbranch.dev/vbranch/internal/git"
	"vbranch.dev/vbranch/internal/output"
	"vbranch.dev/vbranch/internal/workspace"
)

// openWorkspace opens the repository at the current directory and loads its
// workspace state
func openWorkspace() (*git.Repository, *workspace.State, error) {
	repo, err := git.Open(".")
	if err != nil {
		return nil, nil, fmt.Errorf("not a git repository: %w", err)
	}

	state, err := workspace.LoadState(repo.Root())
	if err != nil {
		return nil, nil, fmt.Errorf("workspace not initialized, run vbranch init first: %w", err)
	}

	return repo, state, nil
}

// newSplog builds the command logger, writing a structured copy to the
// repository's log file when a repo is available
func newSplog(repo *git.Repository) *output.Splog {
	if repo == nil || repo.Root() == "" {
		return output.NewSplog()
	}
	splog, err := output.NewSplogWithFile(filepath.Join(repo.Root(), ".git", "vbranch.log"))
	if err != nil {
		return output.NewSplog()
	}
	return splog
}
