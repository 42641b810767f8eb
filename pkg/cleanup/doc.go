// Package cleanup retires stale workflow runs in bounded, rate-friendly batches.
//
// A run repeatedly lists one page of candidates matching a fixed
// "created before" filter, drains that page through a fixed-width window of
// concurrent deletes, and stops when a page comes back empty or the per-run
// ceiling is reached. Deleted runs drop out of later listings, so asking the
// same question again converges on an empty page.
//
// Example usage:
//
//	ctrl := cleanup.NewController(remote, reporter, cleanup.DefaultConfig())
//	result, err := ctrl.Run(ctx, cleanup.Filter{CreatedBefore: "2024-01-01"})
//
// The controller:
//   - Requests pages strictly in sequence (no prefetch while draining)
//   - Truncates the final page so the run never exceeds the ceiling
//   - Keeps at most WindowSize deletes in flight
//   - Lets every delete in a window settle before inspecting failures
//   - Returns the first failure of a window once the whole window settled
package cleanup
