package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-whitelist/internal/recognizer"
)

// WhitelistHandler serves the whitelist, its rebuild jobs and its edits.
type WhitelistHandler struct {
	wl          Whitelist
	jobs        *JobManager
	whitelistID string
	folder      string
	log         *zap.Logger
}

// NewWhitelistHandler creates a whitelist handler. whitelistID and folder are
// used for rebuilds that do not name them.
func NewWhitelistHandler(wl Whitelist, jobs *JobManager, whitelistID, folder string, log *zap.Logger) *WhitelistHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WhitelistHandler{wl: wl, jobs: jobs, whitelistID: whitelistID, folder: folder, log: log}
}

// WhitelistResponse describes the loaded whitelist.
type WhitelistResponse struct {
	ID       string                     `json:"id"`
	Training string                     `json:"training"`
	Persons  []recognizer.PersonSummary `json:"persons"`
}

// Get returns the whitelist id and its persons.
func (h *WhitelistHandler) Get(w http.ResponseWriter, r *http.Request) {
	persons, err := h.wl.Persons()
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, WhitelistResponse{
		ID:       h.wl.WhitelistID(),
		Training: h.wl.State().String(),
		Persons:  persons,
	})
}

// BuildRequest represents a rebuild request. Both fields are optional.
type BuildRequest struct {
	ID     string `json:"id"`
	Folder string `json:"folder"`
}

// StartBuild starts an async rebuild of the whitelist from its folder.
func (h *WhitelistHandler) StartBuild(w http.ResponseWriter, r *http.Request) {
	var req BuildRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.ID == "" {
		req.ID = h.wl.WhitelistID()
	}
	if req.ID == "" {
		req.ID = h.whitelistID
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	if req.Folder == "" {
		req.Folder = h.folder
	}

	job, created := h.jobs.CreateJob(uuid.New().String(), req.ID, req.Folder)
	if !created {
		respondJSON(w, http.StatusConflict, map[string]string{
			"error":  "a build is already running",
			"job_id": job.ID,
		})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job.setCancel(cancel)
	go h.runBuild(ctx, cancel, job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id":       job.ID,
		"whitelist_id": job.WhitelistID,
		"status":       string(JobStatusPending),
	})
}

func (h *WhitelistHandler) runBuild(ctx context.Context, cancel context.CancelFunc, job *BuildJob) {
	defer cancel()

	job.mu.Lock()
	if job.Status == JobStatusPending {
		job.Status = JobStatusRunning
	}
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Whitelist build started"})

	log := h.log.With(zap.String("job", job.ID), zap.String("whitelist", job.WhitelistID))
	report, err := h.wl.CreateWhitelistFromFolder(ctx, job.WhitelistID, job.Folder, job.setProgress)

	switch {
	case err == nil:
		if job.finish(JobStatusCompleted, report, nil) {
			log.Info("whitelist build completed", zap.Int("registered", report.Registered), zap.Int("skipped", len(report.Skipped)))
			job.SendEvent(JobEvent{Type: "completed", Data: report})
		}
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// Cancel already moved the job and told the listeners.
		log.Info("whitelist build cancelled")
	default:
		if job.finish(JobStatusFailed, report, err) {
			log.Warn("whitelist build failed", zap.Error(err))
			job.SendEvent(JobEvent{Type: "job_error", Message: err.Error(), Data: map[string]string{"kind": recognizer.KindOf(err).String()}})
		}
	}
}

// BuildStatus returns the state of a build job.
func (h *WhitelistHandler) BuildStatus(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// BuildEvents streams build progress via SSE.
func (h *WhitelistHandler) BuildEvents(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobs.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job.(*BuildJob).Snapshot()
		},
	)
}

// CancelBuild cancels a build job.
func (h *WhitelistHandler) CancelBuild(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// PersonRequest names a person folder to add.
type PersonRequest struct {
	Folder string `json:"folder"`
	Name   string `json:"name"`
}

// AddPerson adds a person from a folder of images.
func (h *WhitelistHandler) AddPerson(w http.ResponseWriter, r *http.Request) {
	var req PersonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Folder == "" {
		respondError(w, http.StatusBadRequest, "folder is required")
		return
	}

	report, err := h.wl.AddPersonToWhitelist(r.Context(), req.Folder, req.Name)
	if err != nil {
		h.log.Warn("add person failed", zap.String("folder", sanitizeForLog(req.Folder)), zap.Error(err))
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, report)
}

// RemovePerson removes a person and all of their faces.
func (h *WhitelistHandler) RemovePerson(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.wl.RemovePersonFromWhitelist(r.Context(), name); err != nil {
		respondWorkflowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImageRequest names an image and optionally its person.
type ImageRequest struct {
	Path   string `json:"path"`
	Person string `json:"person"`
}

// AddImage registers a single image.
func (h *WhitelistHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	var req ImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.wl.AddImageToWhitelist(r.Context(), req.Path, req.Person); err != nil {
		h.log.Info("add image rejected", zap.String("path", sanitizeForLog(req.Path)), zap.Error(err))
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, req)
}

// RemoveImage unregisters a single image.
func (h *WhitelistHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	var req ImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.wl.RemoveImageFromWhitelist(r.Context(), req.Path, req.Person); err != nil {
		respondWorkflowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeOptionalBody decodes a JSON body that may be empty.
func decodeOptionalBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
