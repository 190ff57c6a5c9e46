package api

import (
	"errors"
	"net/http"
	"testing"

	"pressline/internal/content"
	"pressline/internal/services"
)

func TestStatusCodeByKind(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.Wrap(services.ErrNotFound, "", "get", "missing", nil), http.StatusNotFound},
		{&content.StaleStatusError{ContentID: "c", Expected: content.StatusReceived, Actual: content.StatusClassified}, http.StatusConflict},
		{services.Wrap(services.ErrAttemptInProgress, "seo", "begin", "", nil), http.StatusConflict},
		{services.Wrap(services.ErrValidation, "", "intake", "content_id required", nil), http.StatusBadRequest},
		{services.Wrap(services.ErrStorageUnavailable, "", "query", "", nil), http.StatusServiceUnavailable},
		{services.Wrap(services.ErrExternalServiceTimeout, "analysis", "classify", "", nil), http.StatusGatewayTimeout},
		{services.Wrap(services.ErrMalformedModelOutput, "analysis", "extract", "", nil), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusCode(services.KindOf(tc.err)); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestOutcomeStatusCodeValidationIsUnprocessable(t *testing.T) {
	if got := OutcomeStatusCode(string(services.KindValidation)); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", got)
	}
	if got := OutcomeStatusCode(string(services.KindExternalService)); got != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", got)
	}
}

func TestErrorResponseRoundTrip(t *testing.T) {
	original := services.Wrap(services.ErrStaleStatus, "seo", "cas", "status moved", nil)
	resp := NewErrorResponse(original)
	if resp.Details.Kind != string(services.KindStaleStatus) || resp.Details.Stage != "seo" {
		t.Fatalf("unexpected details %+v", resp.Details)
	}
	if resp.Details.Hint == "" {
		t.Fatal("expected hint")
	}
	rebuilt := resp.Err()
	if !errors.Is(rebuilt, services.ErrStaleStatus) {
		t.Fatalf("expected stale marker, got %v", rebuilt)
	}
	if services.Details(rebuilt).Operation != "cas" {
		t.Fatalf("expected operation to survive, got %+v", services.Details(rebuilt))
	}
}
