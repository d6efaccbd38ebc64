// Package reference provides PatchReference, a branch-reference abstraction
// that can point at a commit or at a mutable change. Unlike a regular git
// reference it is not stored under .git/refs; the workspace manages it.
package reference

import (
	"encoding/json"
	"fmt"

	"vbranch.dev/vbranch/internal/git"
)

// TargetKind discriminates what a reference points at
type TargetKind int

const (
	// TargetCommit points directly at a commit id
	TargetCommit TargetKind = iota
	// TargetChange points at a change (patch) from which a commit is derived.
	// Prefer this when a change id is available: it survives rebases.
	TargetChange
)

// ReferenceTarget is the target of a PatchReference
type ReferenceTarget struct {
	Kind TargetKind
	ID   string
}

// PatchReference names a line of work. Name must be unique within the
// repository and carries no refs/heads/ prefix.
type PatchReference struct {
	Target ReferenceTarget
	Name   string
}

// RemoteReference returns the fully qualified remote-tracking reference for
// the supplied remote, e.g. refs/remotes/origin/base-branch-improvements
func (p PatchReference) RemoteReference(remote string) string {
	return fmt.Sprintf("refs/remotes/%s/%s", remote, p.Name)
}

// Pushed reports whether the reference currently resolves on the provided
// remote
func (p PatchReference) Pushed(repo *git.Repository, remote string) bool {
	return repo.RefExists(p.RemoteReference(remote))
}

type referenceTargetJSON struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
}

// MarshalJSON encodes the target as a tagged union
func (t ReferenceTarget) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TargetCommit:
		return json.Marshal(referenceTargetJSON{Type: "commitId", Subject: t.ID})
	case TargetChange:
		return json.Marshal(referenceTargetJSON{Type: "changeId", Subject: t.ID})
	default:
		return nil, fmt.Errorf("unknown reference target kind %d", t.Kind)
	}
}

// UnmarshalJSON decodes the tagged-union form
func (t *ReferenceTarget) UnmarshalJSON(data []byte) error {
	var raw referenceTargetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case "commitId":
		t.Kind = TargetCommit
	case "changeId":
		t.Kind = TargetChange
	default:
		return fmt.Errorf("unknown reference target type %q", raw.Type)
	}
	t.ID = raw.Subject
	return nil
}
