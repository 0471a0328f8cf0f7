package handlers

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/face-whitelist/internal/constants"
	"github.com/kozaktomas/face-whitelist/internal/recognizer"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// BuildJob is an async whitelist rebuild.
type BuildJob struct {
	EventBroadcaster

	ID          string                  `json:"id"`
	WhitelistID string                  `json:"whitelist_id"`
	Folder      string                  `json:"folder"`
	Status      JobStatus               `json:"status"`
	Progress    int                     `json:"progress"`
	Error       string                  `json:"error,omitempty"`
	ErrorKind   string                  `json:"error_kind,omitempty"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	Result      *recognizer.BuildReport `json:"result,omitempty"`
}

// GetStatus returns the current job status (implements SSEJob).
func (j *BuildJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Snapshot copies the job fields under the lock for encoding.
func (j *BuildJob) Snapshot() *BuildJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return &BuildJob{
		ID:          j.ID,
		WhitelistID: j.WhitelistID,
		Folder:      j.Folder,
		Status:      j.Status,
		Progress:    j.Progress,
		Error:       j.Error,
		ErrorKind:   j.ErrorKind,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Result:      j.Result,
	}
}

// setProgress records a progress report and tells the listeners.
func (j *BuildJob) setProgress(percent int) {
	j.mu.Lock()
	j.Progress = percent
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "progress", Data: map[string]int{"progress": percent}})
}

// finish moves the job to a terminal state unless it already is in one.
func (j *BuildJob) finish(status JobStatus, report *recognizer.BuildReport, err error) bool {
	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	if isJobTerminal(j.Status) {
		return false
	}
	j.Status = status
	j.CompletedAt = &now
	j.Result = report
	if err != nil {
		j.Error = err.Error()
		j.ErrorKind = recognizer.KindOf(err).String()
	}
	if status == JobStatusCompleted {
		j.Progress = 100
	}
	return true
}

// Cancel cancels the build job.
func (j *BuildJob) Cancel() {
	if !j.finish(JobStatusCancelled, nil, nil) {
		return
	}
	j.EventBroadcaster.Cancel()
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = slices.Delete(b.listeners, i, i+1)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

func (b *EventBroadcaster) setCancel(cancel context.CancelFunc) {
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async build jobs. Finished jobs beyond
// constants.MaxFinishedJobs are forgotten, oldest first.
type JobManager struct {
	jobs  map[string]*BuildJob
	order []string
	mu    sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*BuildJob),
	}
}

// CreateJob creates a new build job. While another job is pending or running
// it returns that job and false instead.
func (m *JobManager) CreateJob(id, whitelistID, folder string) (*BuildJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if active := m.activeLocked(); active != nil {
		return active, false
	}

	job := &BuildJob{
		ID:          id,
		WhitelistID: whitelistID,
		Folder:      folder,
		Status:      JobStatusPending,
		StartedAt:   time.Now(),
	}
	m.jobs[id] = job
	m.order = append(m.order, id)
	m.pruneLocked()
	return job, true
}

func (m *JobManager) pruneLocked() {
	finished := 0
	for _, id := range m.order {
		if isJobTerminal(m.jobs[id].GetStatus()) {
			finished++
		}
	}
	m.order = slices.DeleteFunc(m.order, func(id string) bool {
		if finished <= constants.MaxFinishedJobs || !isJobTerminal(m.jobs[id].GetStatus()) {
			return false
		}
		finished--
		delete(m.jobs, id)
		return true
	})
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *BuildJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// Active returns the pending or running job, if any.
func (m *JobManager) Active() *BuildJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeLocked()
}

func (m *JobManager) activeLocked() *BuildJob {
	for _, id := range m.order {
		if job := m.jobs[id]; !isJobTerminal(job.GetStatus()) {
			return job
		}
	}
	return nil
}
