package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"vbranch.dev/vbranch/internal/errors"
)

// LogUntil returns the commits reachable from `from` but not from `until`,
// newest first. This is the committed history a branch carries on top of a
// baseline.
func (r *Repository) LogUntil(from, until plumbing.Hash) ([]plumbing.Hash, error) {
	hidden, err := r.ancestors(until)
	if err != nil {
		return nil, err
	}

	var result []plumbing.Hash
	seen := make(map[plumbing.Hash]bool)
	stack := []plumbing.Hash{from}

	for len(stack) > 0 {
		hash := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[hash] || hidden[hash] {
			continue
		}
		seen[hash] = true
		result = append(result, hash)

		commit, err := r.Commit(hash)
		if err != nil {
			return nil, err
		}
		// push in reverse so the first parent is visited first
		for i := len(commit.ParentHashes) - 1; i >= 0; i-- {
			stack = append(stack, commit.ParentHashes[i])
		}
	}

	return result, nil
}

func (r *Repository) ancestors(start plumbing.Hash) (map[plumbing.Hash]bool, error) {
	reachable := make(map[plumbing.Hash]bool)
	stack := []plumbing.Hash{start}
	for len(stack) > 0 {
		hash := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[hash] {
			continue
		}
		reachable[hash] = true

		commit, err := r.Commit(hash)
		if err != nil {
			return nil, err
		}
		stack = append(stack, commit.ParentHashes...)
	}
	return reachable, nil
}

// CherryRebaseGroup replays an ordered commit sequence (newest first, as
// returned by LogUntil) onto a new base and returns the head of the rebased
// history.
//
// Each step three-way merges the commit's changes onto the current head. A
// conflicted step fails with ErrRebaseConflict unless commitConflicts is set,
// in which case the step is materialized as a conflict commit and the replay
// continues. An empty sequence returns the base unchanged.
func (r *Repository) CherryRebaseGroup(base plumbing.Hash, commits []plumbing.Hash, commitConflicts bool) (plumbing.Hash, error) {
	head, err := r.Commit(base)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	for i := len(commits) - 1; i >= 0; i-- {
		commit, err := r.Commit(commits[i])
		if err != nil {
			return plumbing.ZeroHash, err
		}

		rebased, err := r.cherryPickOnto(commit, head, commitConflicts)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		head = rebased
	}

	return head.Hash, nil
}

// cherryPickOnto replays a single commit onto head. The merge base is the
// commit's first parent (the empty tree for a root commit), ours is what the
// head currently carries, theirs is the commit being picked.
func (r *Repository) cherryPickOnto(commit, head *object.Commit, commitConflicts bool) (*object.Commit, error) {
	baseTree, err := r.parentRealTree(commit)
	if err != nil {
		return nil, err
	}
	headTree, err := r.RealTree(head)
	if err != nil {
		return nil, err
	}
	commitTree, err := r.RealTree(commit)
	if err != nil {
		return nil, err
	}

	merge, err := r.MergeTrees(baseTree, headTree, commitTree)
	if err != nil {
		return nil, err
	}

	var tree plumbing.Hash
	if merge.HasConflicts() {
		if !commitConflicts {
			return nil, &errors.RebaseConflictError{
				Commit: commit.Hash.String(),
				Onto:   head.Hash.String(),
			}
		}
		tree, err = r.WriteConflictedTree(merge)
	} else {
		tree, err = merge.WriteTreeTo(r)
	}
	if err != nil {
		return nil, err
	}

	rebased, err := r.CreateCommit(tree, []plumbing.Hash{head.Hash}, commit.Author, commit.Committer, commit.Message)
	if err != nil {
		return nil, err
	}
	return r.Commit(rebased)
}

func (r *Repository) parentRealTree(commit *object.Commit) (*object.Tree, error) {
	if len(commit.ParentHashes) == 0 {
		emptyTree, err := r.writeTreeObject(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to write empty tree: %w", err)
		}
		return r.Tree(emptyTree)
	}

	parent, err := r.Commit(commit.ParentHashes[0])
	if err != nil {
		return nil, err
	}
	return r.RealTree(parent)
}
