package intake

import (
	"fmt"

	"pressline/internal/services"
)

// EnvelopeError rejects a whole batch whose top-level shape is malformed.
type EnvelopeError struct {
	Reason string
}

func (e *EnvelopeError) Error() string {
	return "invalid batch envelope: " + e.Reason
}

func (e *EnvelopeError) Unwrap() error { return services.ErrValidation }

// OperationError reports a shape failure in one batch entry. Field names the
// offending member, e.g. "table" or "data[1].name".
type OperationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *OperationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("operation %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("operation %d: %s: %s", e.Index, e.Field, e.Reason)
}

func (e *OperationError) Unwrap() error { return services.ErrBatchOperationInvalid }
