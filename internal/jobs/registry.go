package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JxcChen/bili-pro/internal/models"
)

// Registry is the in-memory table of asynchronous extraction jobs. One
// background goroutine owns each job's updates; the registry only guards
// the shared map and hands out value snapshots to pollers. Terminal jobs
// are frozen: no update touches them again.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*models.Job),
	}
}

// Create registers a new pending job and returns its snapshot.
func (r *Registry) Create(meta models.JobMeta) models.Job {
	job := &models.Job{
		ID:        uuid.New().String(),
		Status:    models.JobStatusPending,
		Progress:  0,
		Message:   "job created",
		BVID:      meta.BVID,
		Title:     meta.Title,
		Duration:  meta.Duration,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return *job
}

// Get returns a value snapshot of one job.
func (r *Registry) Get(id string) (models.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

// SetProgress moves a live job forward. Progress never goes backwards and
// terminal jobs are left untouched.
func (r *Registry) SetProgress(id string, progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = models.JobStatusProcessing
	if progress > job.Progress {
		job.Progress = progress
	}
	job.Message = message
}

// Complete attaches the result and freezes the job at 100%.
func (r *Registry) Complete(id string, result *models.Transcript, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = models.JobStatusCompleted
	job.Progress = 100
	job.Message = message
	job.Result = result
}

// Fail freezes the job with progress forced back to 0, signalling
// non-completion rather than keeping the last known value.
func (r *Registry) Fail(id string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = models.JobStatusFailed
	job.Progress = 0
	job.Message = message
}

// Len reports the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// evictBefore removes terminal jobs created before the cutoff. Live jobs
// are never evicted.
func (r *Registry) evictBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, job := range r.jobs {
		if job.Status.Terminal() && job.CreatedAt.Before(cutoff) {
			delete(r.jobs, id)
			evicted++
		}
	}
	return evicted
}
