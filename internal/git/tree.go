package git

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TreeEntry is a single leaf of a flattened tree: the mode and object hash
// stored at one slash-separated path.
type TreeEntry struct {
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// FlattenTree walks a tree recursively and returns its leaf entries keyed by
// full path. Directory entries are not included; they are reconstructed by
// WriteTree.
func FlattenTree(tree *object.Tree) (map[string]TreeEntry, error) {
	entries := make(map[string]TreeEntry)

	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to walk tree: %w", err)
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		entries[name] = TreeEntry{Mode: entry.Mode, Hash: entry.Hash}
	}

	return entries, nil
}

// WriteTree builds nested tree objects from leaf entries keyed by full path
// and returns the root tree hash. Identical inputs always yield the same
// hash: entries are stored in git's canonical tree order.
func (r *Repository) WriteTree(entries map[string]TreeEntry) (plumbing.Hash, error) {
	var files []object.TreeEntry
	subdirs := make(map[string]map[string]TreeEntry)

	for path, entry := range entries {
		if i := strings.IndexByte(path, '/'); i >= 0 {
			dir, rest := path[:i], path[i+1:]
			if subdirs[dir] == nil {
				subdirs[dir] = make(map[string]TreeEntry)
			}
			subdirs[dir][rest] = entry
		} else {
			files = append(files, object.TreeEntry{
				Name: path,
				Mode: entry.Mode,
				Hash: entry.Hash,
			})
		}
	}

	for dir, sub := range subdirs {
		hash, err := r.WriteTree(sub)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		files = append(files, object.TreeEntry{
			Name: dir,
			Mode: filemode.Dir,
			Hash: hash,
		})
	}

	return r.writeTreeObject(files)
}

func (r *Repository) writeTreeObject(entries []object.TreeEntry) (plumbing.Hash, error) {
	sortTreeEntries(entries)

	tree := &object.Tree{Entries: entries}
	obj := r.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}
	hash, err := r.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}

// sortTreeEntries sorts entries the way git does: byte-wise by name, with
// directory names compared as if they had a trailing slash.
func sortTreeEntries(entries []object.TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return treeEntrySortKey(entries[i]) < treeEntrySortKey(entries[j])
	})
}

func treeEntrySortKey(entry object.TreeEntry) string {
	if entry.Mode == filemode.Dir {
		return entry.Name + "/"
	}
	return entry.Name
}
