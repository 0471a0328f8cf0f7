package faceapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the service for missing resources.
const (
	CodePersonGroupNotFound   = "PersonGroupNotFound"
	CodePersonNotFound        = "PersonNotFound"
	CodePersistedFaceNotFound = "PersistedFaceNotFound"
	CodePersonGroupNotTrained = "PersonGroupNotTrained"
)

// APIError is a non-success response from the service.
type APIError struct {
	Method   string
	Endpoint string
	Status   int
	Code     string
	Message  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("face API %s %s failed with status %d: %s: %s", e.Method, e.Endpoint, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("face API %s %s failed with status %d: %s", e.Method, e.Endpoint, e.Status, e.Message)
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPIError(method, endpoint string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Endpoint: endpoint, Status: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		return apiErr
	}
	apiErr.Message = string(body)
	return apiErr
}

// IsNotFound returns true if err reports a missing person-group, person or
// persisted face.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case CodePersonGroupNotFound, CodePersonNotFound, CodePersistedFaceNotFound:
		return true
	}
	return apiErr.Status == http.StatusNotFound
}
