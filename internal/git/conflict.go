package git

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// A materialized-conflict commit preserves an unresolved merge as ordinary,
// inspectable history. Its tree is a wrapper holding the three input sides,
// an auto-resolved tree (the "ours" side wins every conflict) and the list
// of conflicted paths. Downstream code keeps processing such commits like
// any other; RealTree hides the wrapper.
const (
	autoResolutionEntry = ".auto-resolution"
	conflictBaseEntry   = ".conflict-base"
	conflictOursEntry   = ".conflict-ours"
	conflictTheirsEntry = ".conflict-theirs"
	conflictFilesEntry  = ".conflict-files"
)

// WriteConflictedTree materializes a conflicted merge result as a wrapper
// tree and returns its hash
func (r *Repository) WriteConflictedTree(m *MergeResult) (plumbing.Hash, error) {
	autoResolution, err := m.WriteTreeTo(r)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	conflictFiles, err := r.WriteBlob([]byte(strings.Join(m.ConflictedPaths(), "\n") + "\n"))
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return r.writeTreeObject([]object.TreeEntry{
		{Name: autoResolutionEntry, Mode: filemode.Dir, Hash: autoResolution},
		{Name: conflictBaseEntry, Mode: filemode.Dir, Hash: m.baseTree},
		{Name: conflictOursEntry, Mode: filemode.Dir, Hash: m.oursTree},
		{Name: conflictTheirsEntry, Mode: filemode.Dir, Hash: m.theirsTree},
		{Name: conflictFilesEntry, Mode: filemode.Regular, Hash: conflictFiles},
	})
}

// IsConflicted reports whether a commit is a materialized conflict
func (r *Repository) IsConflicted(commit *object.Commit) (bool, error) {
	tree, err := r.Tree(commit.TreeHash)
	if err != nil {
		return false, err
	}
	for _, entry := range tree.Entries {
		if entry.Name == conflictFilesEntry {
			return true, nil
		}
	}
	return false, nil
}

// RealTree returns the tree a commit effectively carries: the auto-resolution
// tree for materialized conflicts, the plain commit tree otherwise
func (r *Repository) RealTree(commit *object.Commit) (*object.Tree, error) {
	tree, err := r.Tree(commit.TreeHash)
	if err != nil {
		return nil, err
	}
	for _, entry := range tree.Entries {
		if entry.Name == autoResolutionEntry && entry.Mode == filemode.Dir {
			return r.Tree(entry.Hash)
		}
	}
	return tree, nil
}

// ConflictedPathsOf returns the conflicted paths recorded in a materialized
// conflict commit, or nil for a clean commit
func (r *Repository) ConflictedPathsOf(commit *object.Commit) ([]string, error) {
	tree, err := r.Tree(commit.TreeHash)
	if err != nil {
		return nil, err
	}
	for _, entry := range tree.Entries {
		if entry.Name == conflictFilesEntry {
			content, err := r.BlobContent(entry.Hash)
			if err != nil {
				return nil, err
			}
			var paths []string
			for _, line := range strings.Split(string(content), "\n") {
				if line != "" {
					paths = append(paths, line)
				}
			}
			return paths, nil
		}
	}
	return nil, nil
}
