package integration

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"vbranch.dev/vbranch/internal/errors"
)

// Approach is how a caller wants a non-integrated branch brought in sync
type Approach int

const (
	// ApproachRebase replays the branch's commits and working tree onto the new baseline
	ApproachRebase Approach = iota
	// ApproachMerge folds the upstream advance into the branch with a merge commit
	ApproachMerge
	// ApproachUnapply removes the branch from the workspace, keeping its record
	ApproachUnapply
)

// StatusResolution is a caller's chosen remedy for one branch. Its shape must
// match the branch's live status: Kind mirrors the status kind, Approach
// applies to every kind except StatusFullyIntegrated (where deletion is the
// only action), and the conflicted flag must restate what the caller saw.
type StatusResolution struct {
	Kind                                    StatusKind
	Approach                                Approach
	PotentiallyConflictedUncommittedChanges bool
}

// Resolution pairs a branch id with its chosen resolution
type Resolution struct {
	BranchID   uuid.UUID        `json:"branchId"`
	Resolution StatusResolution `json:"resolution"`
}

// MatchesStatus reports whether this resolution was chosen against the given
// status. Shapes must agree exactly; for conflicted branches the uncommitted
// flag must agree too, since it changes what a rebase will produce.
func (r StatusResolution) MatchesStatus(status BranchStatus) bool {
	if r.Kind != status.Kind {
		return false
	}
	if r.Kind == StatusConflicted {
		return r.PotentiallyConflictedUncommittedChanges == status.PotentiallyConflictedUncommittedChanges
	}
	return true
}

const (
	approachNameRebase  = "rebase"
	approachNameMerge   = "merge"
	approachNameUnapply = "unapply"
)

// MarshalJSON encodes the approach as its lowercase name
func (a Approach) MarshalJSON() ([]byte, error) {
	switch a {
	case ApproachRebase:
		return json.Marshal(approachNameRebase)
	case ApproachMerge:
		return json.Marshal(approachNameMerge)
	case ApproachUnapply:
		return json.Marshal(approachNameUnapply)
	default:
		return nil, fmt.Errorf("%w: approach %d", errors.ErrUnsupportedApproach, a)
	}
}

// UnmarshalJSON decodes an approach name, rejecting unknown ones
func (a *Approach) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case approachNameRebase:
		*a = ApproachRebase
	case approachNameMerge:
		*a = ApproachMerge
	case approachNameUnapply:
		*a = ApproachUnapply
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnsupportedApproach, name)
	}
	return nil
}

type resolutionSubject struct {
	Approach                                Approach `json:"approach"`
	PotentiallyConflictedUncommittedChanges *bool    `json:"potentiallyConflictedUncommittedChanges,omitempty"`
}

// MarshalJSON encodes the resolution as a type/subject tagged union
func (r StatusResolution) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case StatusFullyIntegrated:
		return json.Marshal(taggedUnion{Type: statusTypeFullyIntegrated})
	case StatusEmpty, StatusSafelyUpdatable, StatusConflicted:
		subject := resolutionSubject{Approach: r.Approach}
		if r.Kind == StatusConflicted {
			flag := r.PotentiallyConflictedUncommittedChanges
			subject.PotentiallyConflictedUncommittedChanges = &flag
		}
		encoded, err := json.Marshal(subject)
		if err != nil {
			return nil, err
		}
		return json.Marshal(taggedUnion{Type: statusTypeName(r.Kind), Subject: encoded})
	default:
		return nil, fmt.Errorf("unknown resolution kind %d", r.Kind)
	}
}

// UnmarshalJSON decodes the type/subject tagged-union form
func (r *StatusResolution) UnmarshalJSON(data []byte) error {
	var raw taggedUnion
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	kind, err := statusKindFromName(raw.Type)
	if err != nil {
		return err
	}
	if kind == StatusFullyIntegrated {
		*r = StatusResolution{Kind: StatusFullyIntegrated}
		return nil
	}

	var subject resolutionSubject
	if len(raw.Subject) > 0 {
		if err := json.Unmarshal(raw.Subject, &subject); err != nil {
			return err
		}
	}
	resolved := StatusResolution{Kind: kind, Approach: subject.Approach}
	if kind == StatusConflicted && subject.PotentiallyConflictedUncommittedChanges != nil {
		resolved.PotentiallyConflictedUncommittedChanges = *subject.PotentiallyConflictedUncommittedChanges
	}
	*r = resolved
	return nil
}

// String returns the kind's wire name
func (k StatusKind) String() string {
	return statusTypeName(k)
}

func statusTypeName(kind StatusKind) string {
	switch kind {
	case StatusEmpty:
		return statusTypeEmpty
	case StatusFullyIntegrated:
		return statusTypeFullyIntegrated
	case StatusConflicted:
		return statusTypeConflicted
	case StatusSafelyUpdatable:
		return statusTypeSafelyUpdatable
	default:
		return "unknown"
	}
}

func statusKindFromName(name string) (StatusKind, error) {
	switch name {
	case statusTypeEmpty:
		return StatusEmpty, nil
	case statusTypeFullyIntegrated:
		return StatusFullyIntegrated, nil
	case statusTypeConflicted:
		return StatusConflicted, nil
	case statusTypeSafelyUpdatable:
		return StatusSafelyUpdatable, nil
	default:
		return 0, fmt.Errorf("unknown status type %q", name)
	}
}
