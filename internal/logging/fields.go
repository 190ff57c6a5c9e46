package logging

const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldContentID identifies the content item being processed.
	FieldContentID = "content_id"
	// FieldStage names the pipeline stage.
	FieldStage = "stage"
	// FieldAttemptID identifies a single stage attempt in the stage log.
	FieldAttemptID = "attempt_id"
	// FieldCorrelationID carries the request correlation identifier.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies the record for filtering (stage_start, stage_complete, ...).
	FieldEventType = "event_type"
	// FieldErrorKind carries the error taxonomy kind.
	FieldErrorKind = "error_kind"
	// FieldErrorHint suggests the next step to an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType labels a logged decision (taxonomy, quality_gate, ...).
	FieldDecisionType = "decision_type"
	// FieldDecisionResult is the chosen outcome of a decision.
	FieldDecisionResult = "decision_result"
	// FieldDecisionReason explains a decision in operator terms.
	FieldDecisionReason = "decision_reason"
	// FieldAlert flags records that should stand out.
	FieldAlert = "alert"
)
