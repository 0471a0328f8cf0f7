package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-whitelist/internal/faceapi"
	"github.com/kozaktomas/face-whitelist/internal/recognizer"
)

func TestRespondJSON(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusCreated, map[string]string{"status": "ok"})

	assertStatusCode(t, recorder, http.StatusCreated)
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}
	if recorder.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Errorf("unexpected body %q", recorder.Body.String())
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{recognizer.ErrInvalidFilePath, http.StatusBadRequest},
		{fmt.Errorf("x: %w", recognizer.ErrInvalidImage), http.StatusUnprocessableEntity},
		{recognizer.ErrNoFaceDetected, http.StatusUnprocessableEntity},
		{recognizer.ErrMultipleFacesDetected, http.StatusUnprocessableEntity},
		{recognizer.ErrNotFound, http.StatusNotFound},
		{recognizer.ErrNoWhitelist, http.StatusNotFound},
		{recognizer.ErrTrainingTimeout, http.StatusGatewayTimeout},
		{&faceapi.APIError{Status: http.StatusInternalServerError}, http.StatusBadGateway},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := statusForError(tc.err); got != tc.want {
			t.Errorf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRespondWorkflowError(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWorkflowError(recorder, fmt.Errorf("%w: door.jpg", recognizer.ErrMultipleFacesDetected))

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	var body map[string]string
	parseJSONResponse(t, recorder, &body)
	if body["kind"] != "multiple_faces_detected" {
		t.Errorf("expected kind multiple_faces_detected, got %q", body["kind"])
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("a\nb\rc"); got != "abc" {
		t.Errorf("expected 'abc', got %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()

	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var body map[string]string
	parseJSONResponse(t, recorder, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}
