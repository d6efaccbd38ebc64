// Package errors provides sentinel errors and custom error types for the vbranch application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// ErrNotFound indicates that a branch reference, commit or baseline could not be resolved
	ErrNotFound = errors.New("not found")

	// ErrAlreadyUpToDate indicates that an integration was requested while no updates are required
	ErrAlreadyUpToDate = errors.New("branches are all up to date")

	// ErrResolutionMismatch indicates that a resolution set does not correspond to the current statuses
	ErrResolutionMismatch = errors.New("resolutions do not match current integration statuses")

	// ErrRebaseConflict indicates that a cherry-pick rebase hit a conflict in non-tolerant mode
	ErrRebaseConflict = errors.New("rebase conflict")

	// ErrUnsupportedApproach indicates a resolution approach this engine does not implement
	ErrUnsupportedApproach = errors.New("unsupported resolution approach")
)

// NotFoundError represents an error when an object or reference is not found
type NotFoundError struct {
	Kind string // what was looked up, e.g. "commit", "branch reference"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Name)
}

// Is returns true if the target error is ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(kind, name string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name}
}

// ResolutionCountError represents a resolution set whose size differs from the status set
type ResolutionCountError struct {
	Resolutions int
	Statuses    int
}

func (e *ResolutionCountError) Error() string {
	return fmt.Sprintf("got %d resolutions for %d branch statuses", e.Resolutions, e.Statuses)
}

// Is returns true if the target error is ErrResolutionMismatch
func (e *ResolutionCountError) Is(target error) bool {
	return target == ErrResolutionMismatch
}

// StaleResolutionError represents a resolution whose shape no longer matches the branch's live status
type StaleResolutionError struct {
	BranchID string
}

func (e *StaleResolutionError) Error() string {
	return fmt.Sprintf("resolution for branch %s does not match its current status; re-query statuses before integrating", e.BranchID)
}

// Is returns true if the target error is ErrResolutionMismatch
func (e *StaleResolutionError) Is(target error) bool {
	return target == ErrResolutionMismatch
}

// RebaseConflictError represents a conflict encountered while replaying a commit
type RebaseConflictError struct {
	Commit string
	Onto   string
}

func (e *RebaseConflictError) Error() string {
	return fmt.Sprintf("conflict while picking %s onto %s", e.Commit, e.Onto)
}

// Is returns true if the target error is ErrRebaseConflict
func (e *RebaseConflictError) Is(target error) bool {
	return target == ErrRebaseConflict
}
