// Package testhelper builds in-memory object graphs for tests.
package testhelper

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"vbranch.dev/vbranch/internal/git"
)

var commitClock atomic.Int64

// NewRepo returns a bare in-memory repository
func NewRepo(t *testing.T) *git.Repository {
	t.Helper()
	repo, err := git.InitInMemory()
	require.NoError(t, err)
	return repo
}

// WriteTree stores the given files as blobs under a tree and returns the
// tree hash
func WriteTree(t *testing.T, repo *git.Repository, files map[string]string) plumbing.Hash {
	t.Helper()
	entries := make(map[string]git.TreeEntry, len(files))
	for path, content := range files {
		blob, err := repo.WriteBlob([]byte(content))
		require.NoError(t, err)
		entries[path] = git.TreeEntry{Mode: filemode.Regular, Hash: blob}
	}
	tree, err := repo.WriteTree(entries)
	require.NoError(t, err)
	return tree
}

// CommitFiles creates a commit whose tree holds exactly the given files.
// Each call gets a distinct timestamp so equal file sets still produce
// distinct commits.
func CommitFiles(t *testing.T, repo *git.Repository, parents []plumbing.Hash, message string, files map[string]string) *object.Commit {
	t.Helper()
	tree := WriteTree(t, repo, files)

	when := time.Unix(1700000000+commitClock.Add(1), 0)
	signature := object.Signature{Name: "Test Author", Email: "author@example.com", When: when}

	hash, err := repo.CreateCommit(tree, parents, signature, signature, message)
	require.NoError(t, err)
	commit, err := repo.Commit(hash)
	require.NoError(t, err)
	return commit
}

// TreeFiles flattens a tree hash into path -> content for assertions
func TreeFiles(t *testing.T, repo *git.Repository, tree plumbing.Hash) map[string]string {
	t.Helper()
	treeObj, err := repo.Tree(tree)
	require.NoError(t, err)
	entries, err := git.FlattenTree(treeObj)
	require.NoError(t, err)

	files := make(map[string]string, len(entries))
	for path, entry := range entries {
		content, err := repo.BlobContent(entry.Hash)
		require.NoError(t, err)
		files[path] = string(content)
	}
	return files
}
