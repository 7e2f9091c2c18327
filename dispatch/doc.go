// Package dispatch decides which delivery pipelines a push must start.
//
// A Dispatcher asks a DiffProvider for the files changed between the before
// and after revisions of a ChangeEvent, matches every changed path against
// the watched paths of each configured route, and starts one execution per
// matched pipeline through an ExecutionTrigger.
//
// Basic usage:
//
//	d, err := dispatch.New(diffs, trigger, routes, dispatch.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	result, err := d.Dispatch(ctx, event)
//	if err != nil {
//		return err // DIFF_UNAVAILABLE: nothing was triggered
//	}
//	return result.Err() // ROUTE_TRIGGER_FAILED when any start request failed
//
// Matching is by substring by default: a route matches when any changed path
// contains any of its watched strings. SegmentMatcher anchors matches on path
// segment boundaries instead and is opt-in through WithMatcher.
//
// A Dispatcher holds no state between calls and is safe for concurrent use.
package dispatch
