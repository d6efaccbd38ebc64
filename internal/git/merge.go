package git

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// MergeResult holds the outcome of a three-way tree merge. The merged
// entries have conflicts auto-resolved to the "ours" side; the conflicted
// paths are reported separately so callers can decide whether the result is
// usable as-is or must be materialized as a conflicted commit.
type MergeResult struct {
	entries   map[string]TreeEntry
	conflicts []string

	baseTree   plumbing.Hash
	oursTree   plumbing.Hash
	theirsTree plumbing.Hash
}

// HasConflicts reports whether any path had overlapping changes
func (m *MergeResult) HasConflicts() bool {
	return len(m.conflicts) > 0
}

// ConflictedPaths returns the conflicted paths in sorted order
func (m *MergeResult) ConflictedPaths() []string {
	paths := make([]string, len(m.conflicts))
	copy(paths, m.conflicts)
	sort.Strings(paths)
	return paths
}

// WriteTreeTo writes the merged (auto-resolved) tree to the repository's
// object store and returns its hash
func (m *MergeResult) WriteTreeTo(r *Repository) (plumbing.Hash, error) {
	return r.WriteTree(m.entries)
}

// MergeTrees computes a three-way merge of base, ours and theirs.
//
// Per path: if ours and theirs agree the shared entry wins; if only one side
// changed relative to base that side wins; if both sides changed differently
// the path is conflicted. This single primitive is the source of truth for
// the conflicted / integrated / updatable distinction, so those outcomes stay
// mutually exclusive.
func (r *Repository) MergeTrees(base, ours, theirs *object.Tree) (*MergeResult, error) {
	baseEntries, err := FlattenTree(base)
	if err != nil {
		return nil, err
	}
	oursEntries, err := FlattenTree(ours)
	if err != nil {
		return nil, err
	}
	theirsEntries, err := FlattenTree(theirs)
	if err != nil {
		return nil, err
	}

	result := &MergeResult{
		entries:    make(map[string]TreeEntry),
		baseTree:   base.Hash,
		oursTree:   ours.Hash,
		theirsTree: theirs.Hash,
	}

	for _, path := range unionPaths(baseEntries, oursEntries, theirsEntries) {
		b, hasBase := baseEntries[path]
		o, hasOurs := oursEntries[path]
		t, hasTheirs := theirsEntries[path]

		switch {
		case entriesEqual(o, hasOurs, t, hasTheirs):
			if hasOurs {
				result.entries[path] = o
			}
		case entriesEqual(b, hasBase, o, hasOurs):
			// only theirs changed
			if hasTheirs {
				result.entries[path] = t
			}
		case entriesEqual(b, hasBase, t, hasTheirs):
			// only ours changed
			if hasOurs {
				result.entries[path] = o
			}
		default:
			result.conflicts = append(result.conflicts, path)
			if hasOurs {
				result.entries[path] = o
			}
		}
	}

	return result, nil
}

func entriesEqual(a TreeEntry, hasA bool, b TreeEntry, hasB bool) bool {
	if hasA != hasB {
		return false
	}
	if !hasA {
		return true
	}
	return a.Mode == b.Mode && a.Hash == b.Hash
}

func unionPaths(maps ...map[string]TreeEntry) []string {
	seen := make(map[string]struct{})
	var paths []string
	for _, m := range maps {
		for path := range m {
			if _, ok := seen[path]; !ok {
				seen[path] = struct{}{}
				paths = append(paths, path)
			}
		}
	}
	sort.Strings(paths)
	return paths
}
