package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-whitelist/internal/constants"
)

// RecognizeHandler serves recognition and the doorbell for uploaded images.
type RecognizeHandler struct {
	wl   Whitelist
	bell Doorbell
	log  *zap.Logger
}

// NewRecognizeHandler creates a recognize handler. bell may be nil, in which
// case the doorbell endpoint answers 503.
func NewRecognizeHandler(wl Whitelist, bell Doorbell, log *zap.Logger) *RecognizeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecognizeHandler{wl: wl, bell: bell, log: log}
}

// saveUploadedImage stores the "image" form file in a fresh temporary
// directory and returns its path and a cleanup func.
func saveUploadedImage(r *http.Request) (string, func(), error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return "", nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", nil, errors.New("image file is required")
	}
	defer file.Close()

	dir, err := os.MkdirTemp("", "face-whitelist-upload-")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.Base(header.Filename))
	out, err := os.Create(path) //nolint:gosec // filename sanitized via filepath.Base
	if err != nil {
		cleanup()
		return "", nil, errors.New("failed to create temp file")
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		cleanup()
		return "", nil, errors.New("failed to save file")
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, errors.New("failed to save file")
	}
	return path, cleanup, nil
}

// Recognize returns the whitelisted persons visible in the uploaded image.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	path, cleanup, err := saveUploadedImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	names, err := h.wl.RecognizeFaces(r.Context(), path)
	if err != nil {
		h.log.Info("recognition failed", zap.Error(err))
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"names": names})
}

// Ring handles a doorbell press with the uploaded visitor image.
func (h *RecognizeHandler) Ring(w http.ResponseWriter, r *http.Request) {
	if h.bell == nil {
		respondError(w, http.StatusServiceUnavailable, "doorbell not configured")
		return
	}
	path, cleanup, err := saveUploadedImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	visit, err := h.bell.Ring(r.Context(), path)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	visit.ImagePath = filepath.Base(path)
	respondJSON(w, http.StatusOK, visit)
}
