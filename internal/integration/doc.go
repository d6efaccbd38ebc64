// Package integration decides how each virtual branch relates to a moving
// upstream baseline and computes the object-graph changes that bring it back
// in sync.
//
// A round runs decide-then-act under one workspace write permission:
//
//	guard := access.LockWorktree()
//	defer guard.Release()
//	ctx, _ := integration.Open(repo, state, guard)
//	statuses, _ := integration.Statuses(ctx)
//	// caller picks a resolution per branch
//	results, _ := integration.Integrate(ctx, resolutions)
//	_ = integration.Apply(state, results, ctx.NewTarget(), guard)
//
// Statuses are never cached: Integrate revalidates the resolution set against
// a fresh classification and rejects anything stale, so a caller can never
// act on a decision the world has moved past.
package integration
