// Package daemon coordinates the long-running pressline process.
//
// It ties configuration, the content store, the workflow manager, and the
// intake processor into a single lifecycle with flock-based locking to
// prevent multiple instances sharing one log directory. The daemon owns the
// HTTP API: intake and batch writes, per-stage triggers, operator decisions,
// item queries, status, prometheus metrics, and the swagger UI.
//
// Keep orchestration logic out of this package: stage semantics live in the
// workflow and stage packages while the daemon focuses on startup, shutdown,
// and request routing.
package daemon
