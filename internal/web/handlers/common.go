package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-whitelist/internal/door"
	"github.com/kozaktomas/face-whitelist/internal/recognizer"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// Whitelist is the recognizer surface used by the handlers.
type Whitelist interface {
	WhitelistID() string
	State() recognizer.TrainingState
	Persons() ([]recognizer.PersonSummary, error)
	CreateWhitelistFromFolder(ctx context.Context, whitelistID, root string, progress recognizer.ProgressFunc) (*recognizer.BuildReport, error)
	AddImageToWhitelist(ctx context.Context, imagePath, personName string) error
	RemoveImageFromWhitelist(ctx context.Context, imagePath, personName string) error
	AddPersonToWhitelist(ctx context.Context, folder, personName string) (*recognizer.BuildReport, error)
	RemovePersonFromWhitelist(ctx context.Context, personName string) error
	RecognizeFaces(ctx context.Context, imagePath string) ([]string, error)
}

// Doorbell handles a visitor image.
type Doorbell interface {
	Ring(ctx context.Context, imagePath string) (*door.Visit, error)
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps a workflow error to an HTTP status.
func statusForError(err error) int {
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	switch recognizer.KindOf(err) {
	case recognizer.KindInvalidFilePath:
		return http.StatusBadRequest
	case recognizer.KindInvalidImage, recognizer.KindNoFaceDetected, recognizer.KindMultipleFacesDetected:
		return http.StatusUnprocessableEntity
	case recognizer.KindNotFound:
		return http.StatusNotFound
	case recognizer.KindTimeout:
		return http.StatusGatewayTimeout
	case recognizer.KindRemoteService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWorkflowError sends a workflow error with its kind.
func respondWorkflowError(w http.ResponseWriter, err error) {
	respondJSON(w, statusForError(err), map[string]string{
		"error": err.Error(),
		"kind":  recognizer.KindOf(err).String(),
	})
}

// decodeJSON decodes the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
