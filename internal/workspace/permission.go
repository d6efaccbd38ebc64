package workspace

import "sync"

// Access serializes mutating operations against one workspace. It is the
// single-writer lock over the branch set and target: an integration round
// (open context, classify, validate, execute, apply) must hold one guard for
// its whole duration.
type Access struct {
	mu sync.Mutex
}

// WriteGuard is the exclusive workspace-write permission, passed explicitly
// to every operation that requires it. Release ends the round.
type WriteGuard struct {
	access   *Access
	released bool
}

// LockWorktree blocks until exclusive write access is available and returns
// the guard holding it
func (a *Access) LockWorktree() *WriteGuard {
	a.mu.Lock()
	return &WriteGuard{access: a}
}

// Release gives up the permission. Safe to call more than once.
func (g *WriteGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.access.mu.Unlock()
}
