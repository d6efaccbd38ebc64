package git

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"vbranch.dev/vbranch/internal/errors"
)

// Repository wraps a go-git repository
type Repository struct {
	*gogit.Repository
	path string
}

// Open opens a git repository at the given path
func Open(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	// DetectDotGit may have walked up from a subdirectory
	if worktree, err := repo.Worktree(); err == nil {
		absPath = worktree.Filesystem.Root()
	}

	return &Repository{
		Repository: repo,
		path:       absPath,
	}, nil
}

// InitInMemory creates a bare in-memory repository. Used by tests and by
// callers that only need object-graph computation without a worktree.
func InitInMemory() (*Repository, error) {
	repo, err := gogit.Init(memory.NewStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init in-memory repository: %w", err)
	}
	return &Repository{Repository: repo}, nil
}

// Root returns the root directory of the repository, empty for in-memory ones
func (r *Repository) Root() string {
	return r.path
}

// Commit looks up a commit object by hash
func (r *Repository) Commit(hash plumbing.Hash) (*object.Commit, error) {
	commit, err := r.CommitObject(hash)
	if err != nil {
		if err == plumbing.ErrObjectNotFound {
			return nil, errors.NewNotFoundError("commit", hash.String())
		}
		return nil, fmt.Errorf("failed to look up commit %s: %w", hash, err)
	}
	return commit, nil
}

// Tree looks up a tree object by hash
func (r *Repository) Tree(hash plumbing.Hash) (*object.Tree, error) {
	tree, err := r.TreeObject(hash)
	if err != nil {
		if err == plumbing.ErrObjectNotFound {
			return nil, errors.NewNotFoundError("tree", hash.String())
		}
		return nil, fmt.Errorf("failed to look up tree %s: %w", hash, err)
	}
	return tree, nil
}

// ResolveRef resolves a reference name to the commit it points to
func (r *Repository) ResolveRef(name string) (*object.Commit, error) {
	ref, err := r.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		return nil, errors.NewNotFoundError("reference", name)
	}
	return r.Commit(ref.Hash())
}

// RefExists reports whether a reference name currently resolves
func (r *Repository) RefExists(name string) bool {
	_, err := r.Reference(plumbing.ReferenceName(name), true)
	return err == nil
}

// SetRef points a reference at a commit, creating it if needed
func (r *Repository) SetRef(name string, hash plumbing.Hash) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), hash)
	if err := r.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to set reference %s: %w", name, err)
	}
	return nil
}

// WriteBlob stores a blob with the given content and returns its hash
func (r *Repository) WriteBlob(content []byte) (plumbing.Hash, error) {
	obj := r.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to open blob writer: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to close blob writer: %w", err)
	}

	hash, err := r.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// BlobContent returns the content of a blob by hash
func (r *Repository) BlobContent(hash plumbing.Hash) ([]byte, error) {
	blob, err := r.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up blob %s: %w", hash, err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", hash, err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// CreateCommit stores a commit object and returns its hash. The worktree is
// never touched; commits are built directly in the object store.
func (r *Repository) CreateCommit(tree plumbing.Hash, parents []plumbing.Hash, author, committer object.Signature, message string) (plumbing.Hash, error) {
	commit := &object.Commit{
		Author:       author,
		Committer:    committer,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	obj := r.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode commit: %w", err)
	}
	hash, err := r.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store commit: %w", err)
	}
	return hash, nil
}

// SystemSignature returns the identity used for synthetic commits created by
// the integration engine, such as the "Uncommitted changes" carrier commit.
func SystemSignature() object.Signature {
	return object.Signature{
		Name:  "vbranch",
		Email: "noreply@vbranch.dev",
		When:  time.Now(),
	}
}
