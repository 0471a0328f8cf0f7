package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-whitelist/internal/door"
	"github.com/kozaktomas/face-whitelist/internal/recognizer"
	"github.com/kozaktomas/face-whitelist/internal/whitelist"
)

// stubWhitelist answers the recognizer calls with canned results.
type stubWhitelist struct {
	mu sync.Mutex

	id      string
	persons []recognizer.PersonSummary
	err     error
	names   []string
	report  *recognizer.BuildReport

	// buildFunc replaces CreateWhitelistFromFolder when set.
	buildFunc func(ctx context.Context, progress recognizer.ProgressFunc) (*recognizer.BuildReport, error)

	calls    []string
	lastPath string
}

func (s *stubWhitelist) record(call, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	s.lastPath = path
}

func (s *stubWhitelist) WhitelistID() string             { return s.id }
func (s *stubWhitelist) State() recognizer.TrainingState { return recognizer.TrainingSucceeded }

func (s *stubWhitelist) Persons() ([]recognizer.PersonSummary, error) {
	return s.persons, s.err
}

func (s *stubWhitelist) CreateWhitelistFromFolder(ctx context.Context, whitelistID, root string, progress recognizer.ProgressFunc) (*recognizer.BuildReport, error) {
	s.record("build "+whitelistID, root)
	if s.buildFunc != nil {
		return s.buildFunc(ctx, progress)
	}
	return s.report, s.err
}

func (s *stubWhitelist) AddImageToWhitelist(ctx context.Context, imagePath, personName string) error {
	s.record("add-image "+personName, imagePath)
	return s.err
}

func (s *stubWhitelist) RemoveImageFromWhitelist(ctx context.Context, imagePath, personName string) error {
	s.record("remove-image "+personName, imagePath)
	return s.err
}

func (s *stubWhitelist) AddPersonToWhitelist(ctx context.Context, folder, personName string) (*recognizer.BuildReport, error) {
	s.record("add-person "+personName, folder)
	return s.report, s.err
}

func (s *stubWhitelist) RemovePersonFromWhitelist(ctx context.Context, personName string) error {
	s.record("remove-person "+personName, "")
	return s.err
}

func (s *stubWhitelist) RecognizeFaces(ctx context.Context, imagePath string) ([]string, error) {
	s.record("recognize", imagePath)
	return s.names, s.err
}

func (s *stubWhitelist) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func samplePersons() []recognizer.PersonSummary {
	return []recognizer.PersonSummary{
		{Person: whitelist.Person{ID: "p-1", Name: "Alice", SourceFolder: "/wl/Alice"}, FaceCount: 2},
		{Person: whitelist.Person{ID: "p-2", Name: "Bob", SourceFolder: "/wl/Bob"}, FaceCount: 1},
	}
}

// stubBell returns a fixed visit.
type stubBell struct {
	visit *door.Visit
	err   error
	path  string
}

func (b *stubBell) Ring(ctx context.Context, imagePath string) (*door.Visit, error) {
	b.path = imagePath
	return b.visit, b.err
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// uploadRequest creates a multipart request with an "image" file
func uploadRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
