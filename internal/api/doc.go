// Package api defines wire-format types and converters for the daemon HTTP
// API. It translates content items, stage records, and workflow outcomes into
// transport DTOs the CLI and other consumers can render without importing the
// store packages.
//
// # Key Types
//
// Item: transport representation of a content item with its derived fields,
// error log, and timestamps.
//
// StageRecord: one Stage Log entry.
//
// TriggerResponse: the outcome of a single stage trigger.
//
// WorkflowStatus and DaemonStatus: sweeper state, per-status counts, stage
// health, and daemon runtime paths.
//
// ErrorResponse: the `{error, details}` body returned for every failure.
//
// # Converters
//
// FromItem: content.Item -> Item, lifting the page title for listings.
//
// FromOutcome: workflow.Outcome -> TriggerResponse.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus with every
// status present in Stats.
//
// # Design Notes
//
// DTOs use snake_case JSON tags to match the intake and batch wire formats.
// Timestamps use RFC3339 with milliseconds. Derived structured fields pass
// through as json.RawMessage to avoid double-encoding.
//
// Error kinds map to HTTP status codes in StatusCode; ErrorResponse.Err
// rebuilds a marker-tagged error on the client side so callers can classify
// remote failures with errors.Is.
package api
