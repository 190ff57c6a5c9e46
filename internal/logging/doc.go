// Package logging builds the slog loggers used by the daemon, the CLI, and the
// pipeline stages.
//
// Console output uses a compact human-readable handler (or JSON when
// configured); when a log directory is configured every record is also written
// as JSON to a size-rotated file managed by lumberjack. Shared field names
// (content_id, stage, event_type, decision_type, ...) live here so stage code
// and the orchestrator log with one vocabulary.
package logging
