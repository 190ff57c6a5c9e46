// Package stage defines the contract between the orchestrator and the
// pipeline stages, plus the payload helpers stages share.
//
// A stage never writes status. It returns a Result whose Patch holds only the
// derived fields it owns; the orchestrator persists the patch, appends the
// terminal stage record and then moves the status.
package stage
