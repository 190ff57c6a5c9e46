package api

import (
	"net/http"
	"strings"

	"pressline/internal/services"
)

// StatusCode maps an error kind to the HTTP status the API reports for it.
func StatusCode(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindBatchOperationInvalid:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindStaleStatus, services.KindAttemptInProgress:
		return http.StatusConflict
	case services.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	case services.KindExternalServiceTimeout:
		return http.StatusGatewayTimeout
	case services.KindExternalService, services.KindMalformedModelOutput, services.KindAssetUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// OutcomeStatusCode maps a failed stage outcome. Input the stage rejected is
// unprocessable rather than a bad request.
func OutcomeStatusCode(kind string) int {
	if services.ErrorKind(kind) == services.KindValidation {
		return http.StatusUnprocessableEntity
	}
	return StatusCode(services.ErrorKind(kind))
}

// NewErrorResponse classifies err into a response body.
func NewErrorResponse(err error) ErrorResponse {
	details := services.Details(err)
	return ErrorResponse{
		Error: strings.TrimSpace(err.Error()),
		Details: ErrorDetails{
			Kind:      string(details.Kind),
			Stage:     details.Stage,
			Operation: details.Operation,
			Hint:      details.Hint,
		},
	}
}

// Err rebuilds a marker-tagged error from a decoded response.
func (r ErrorResponse) Err() error {
	message := strings.TrimSpace(r.Error)
	if message == "" {
		message = "request failed"
	}
	return services.Wrap(services.MarkerFor(services.ErrorKind(r.Details.Kind)), r.Details.Stage, r.Details.Operation, message, nil)
}
