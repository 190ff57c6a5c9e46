// Package services defines shared utilities consumed by the pipeline stages,
// the orchestrator, and the HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp content IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap and Details helpers that map
//     failures onto the pipeline error taxonomy (malformed model output,
//     stale status conflicts, collaborator timeouts, and so on).
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
