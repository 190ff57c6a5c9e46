package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTransient       = errors.New("transient failure")
	ErrExternalService = errors.New("external service error")

	ErrMalformedModelOutput   = errors.New("malformed model output")
	ErrAssetUnreachable       = errors.New("asset unreachable")
	ErrStaleStatus            = errors.New("stale status conflict")
	ErrBatchOperationInvalid  = errors.New("batch operation invalid")
	ErrExternalServiceTimeout = errors.New("external service timeout")
	ErrAttemptInProgress      = errors.New("stage attempt in progress")
	ErrStorageUnavailable     = errors.New("storage unavailable")
)

// ErrorKind names a failure class in logs, the stage log, and API error bodies.
type ErrorKind string

const (
	KindMalformedModelOutput   ErrorKind = "malformed_model_output"
	KindAssetUnreachable       ErrorKind = "asset_unreachable"
	KindStaleStatus            ErrorKind = "stale_status_conflict"
	KindBatchOperationInvalid  ErrorKind = "batch_operation_invalid"
	KindExternalServiceTimeout ErrorKind = "external_service_timeout"
	KindAttemptInProgress      ErrorKind = "attempt_in_progress"
	KindStorageUnavailable     ErrorKind = "storage_unavailable"
	KindValidation             ErrorKind = "validation"
	KindConfiguration          ErrorKind = "configuration"
	KindNotFound               ErrorKind = "not_found"
	KindExternalService        ErrorKind = "external_service"
	KindTransient              ErrorKind = "transient"
)

// markerKinds is checked in order; the first marker found in the chain wins.
var markerKinds = []struct {
	marker error
	kind   ErrorKind
	hint   string
}{
	{ErrStorageUnavailable, KindStorageUnavailable, "check database connectivity"},
	{ErrMalformedModelOutput, KindMalformedModelOutput, "inspect the classifier response and prompt"},
	{ErrStaleStatus, KindStaleStatus, "reload the item; another trigger advanced it"},
	{ErrAttemptInProgress, KindAttemptInProgress, "wait for the running attempt or let the sweeper reclaim it"},
	{ErrBatchOperationInvalid, KindBatchOperationInvalid, "fix the operation shape and resubmit"},
	{ErrExternalServiceTimeout, KindExternalServiceTimeout, "retrigger the stage once the collaborator recovers"},
	{ErrAssetUnreachable, KindAssetUnreachable, "check the asset URL"},
	{ErrValidation, KindValidation, "fix the input and retry"},
	{ErrConfiguration, KindConfiguration, "check the configuration file"},
	{ErrNotFound, KindNotFound, "verify the identifier"},
	{ErrExternalService, KindExternalService, "check the collaborator service"},
	{ErrTransient, KindTransient, "retry the operation"},
}

// ErrorDetails is the structured view of a wrapped error.
type ErrorDetails struct {
	Kind      ErrorKind
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := buildDetail(stage, operation, message)
	wrapped := &wrappedError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
	if err != nil {
		wrapped.text = fmt.Sprintf("%s: %s: %s", marker.Error(), detail, err.Error())
	} else {
		wrapped.text = fmt.Sprintf("%s: %s", marker.Error(), detail)
	}
	return wrapped
}

type wrappedError struct {
	marker    error
	stage     string
	operation string
	message   string
	cause     error
	text      string
}

func (e *wrappedError) Error() string { return e.text }

func (e *wrappedError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.cause}
}

// Details extracts the classification and context from err. Deadline and
// cancellation errors from collaborators classify as external timeouts.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: KindTransient, Message: strings.TrimSpace(err.Error()), Cause: err}
	var wrapped *wrappedError
	if errors.As(err, &wrapped) {
		details.Stage = wrapped.stage
		details.Operation = wrapped.operation
		if wrapped.message != "" {
			details.Message = wrapped.message
		}
		if wrapped.cause != nil {
			details.Cause = wrapped.cause
		}
	}
	for _, entry := range markerKinds {
		if errors.Is(err, entry.marker) {
			details.Kind = entry.kind
			details.Hint = entry.hint
			return details
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		details.Kind = KindExternalServiceTimeout
		details.Hint = "retrigger the stage once the collaborator recovers"
		return details
	}
	details.Hint = "check logs for details"
	return details
}

// KindOf is shorthand for Details(err).Kind.
func KindOf(err error) ErrorKind {
	return Details(err).Kind
}

// IsFatal reports whether err must propagate to the caller instead of being
// recorded as a stage-local failure.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// MarkerFor returns the sentinel for kind, falling back to ErrTransient.
func MarkerFor(kind ErrorKind) error {
	for _, entry := range markerKinds {
		if entry.kind == kind {
			return entry.marker
		}
	}
	return ErrTransient
}
