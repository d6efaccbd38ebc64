// Package git provides the object-graph primitives the integration engine
// runs on, built over go-git.
//
// It wraps a go-git repository and provides:
//   - Commit, tree and reference lookup
//   - Three-way tree merges with conflict detection (MergeTrees)
//   - Materialized-conflict commits (IsConflicted, RealTree)
//   - Cherry-pick rebase of commit sequences (CherryRebaseGroup)
//   - Object creation (blobs, trees, commits)
//
// The object store is treated as append-only: this package never deletes
// objects, only creates new ones.
package git
