// Package workflow advances content items through the seven pipeline stages.
//
// The Manager is the only writer of item status. Trigger runs one stage for
// one item: it claims the item with a compare-and-set write, opens an attempt
// in the stage log, runs the handler under the stage timeout, persists the
// derived fields the stage owns, and closes the attempt before the status
// write that publishes the result. Re-triggering a stage that already has a
// completed record replays that result instead of running the handler again.
//
// Drive chains triggers until an item reaches a terminal status or waits on a
// human. Approve, HoldForReview, and Retry are the operator transitions. The
// sweeper (Start/Stop) reclaims abandoned attempts, repairs status writes
// that lagged a completed record, and re-runs the quality gate for held items.
//
// Stage failures never escape Trigger as errors: they are recorded in the
// stage log and the item's error_logs and reported on the Outcome. Only
// storage unavailability and status conflicts are returned to the caller.
package workflow
