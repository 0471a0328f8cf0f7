package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-whitelist/internal/door"
	"github.com/kozaktomas/face-whitelist/internal/recognizer"
)

func TestRecognizeHandler_Recognize(t *testing.T) {
	wl := &stubWhitelist{names: []string{"Alice", "Bob"}}
	h := NewRecognizeHandler(wl, nil, nil)
	recorder := httptest.NewRecorder()

	h.Recognize(recorder, uploadRequest(t, "/api/v1/recognize", "../../visitor.jpg", []byte("jpeg bytes")))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp map[string][]string
	parseJSONResponse(t, recorder, &resp)
	if len(resp["names"]) != 2 || resp["names"][0] != "Alice" {
		t.Errorf("unexpected names %v", resp["names"])
	}

	if filepath.Base(wl.lastPath) != "visitor.jpg" {
		t.Errorf("upload should keep the base name, got %q", wl.lastPath)
	}
	if _, err := os.Stat(wl.lastPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("upload should be removed after the request, stat: %v", err)
	}
}

func TestRecognizeHandler_Recognize_Errors(t *testing.T) {
	h := NewRecognizeHandler(&stubWhitelist{err: recognizer.ErrNoWhitelist}, nil, nil)

	recorder := httptest.NewRecorder()
	h.Recognize(recorder, uploadRequest(t, "/", "visitor.jpg", []byte("x")))
	assertStatusCode(t, recorder, http.StatusNotFound)

	recorder = httptest.NewRecorder()
	h.Recognize(recorder, jsonRequest(t, http.MethodPost, "/", map[string]string{"image": "x"}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestRecognizeHandler_Ring(t *testing.T) {
	bell := &stubBell{visit: &door.Visit{
		Recognized: []string{"Alice"},
		Visitor:    "Alice",
		Unlocked:   true,
		Message:    door.Greeting("Alice"),
		At:         time.Now(),
	}}
	h := NewRecognizeHandler(&stubWhitelist{}, bell, nil)
	recorder := httptest.NewRecorder()

	h.Ring(recorder, uploadRequest(t, "/api/v1/doorbell", "door.png", []byte("png bytes")))

	assertStatusCode(t, recorder, http.StatusOK)
	var visit door.Visit
	parseJSONResponse(t, recorder, &visit)
	if !visit.Unlocked || visit.Visitor != "Alice" || visit.ImagePath != "door.png" {
		t.Errorf("unexpected visit %+v", visit)
	}
	if filepath.Base(bell.path) != "door.png" {
		t.Errorf("unexpected ring path %q", bell.path)
	}
}

func TestRecognizeHandler_Ring_Errors(t *testing.T) {
	h := NewRecognizeHandler(&stubWhitelist{}, nil, nil)
	recorder := httptest.NewRecorder()
	h.Ring(recorder, uploadRequest(t, "/", "door.png", []byte("x")))
	assertStatusCode(t, recorder, http.StatusServiceUnavailable)

	bell := &stubBell{visit: &door.Visit{Message: door.NotRecognizedMessage}, err: recognizer.ErrTrainingTimeout}
	h = NewRecognizeHandler(&stubWhitelist{}, bell, nil)
	recorder = httptest.NewRecorder()
	h.Ring(recorder, uploadRequest(t, "/", "door.png", []byte("x")))
	assertStatusCode(t, recorder, http.StatusGatewayTimeout)
}
