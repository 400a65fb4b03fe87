package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobState is the lifecycle phase of a processing job.
type JobState string

const (
	JobUploaded   JobState = "uploaded"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Job tracks one uploaded score through the processing pipeline.
type Job struct {
	ID          string     `json:"job_id"`
	Filename    string     `json:"filename"`
	Status      JobState   `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// jobStore is an in-memory job registry guarded by a mutex. Jobs live for
// the process lifetime; a database would replace this in production.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*Job)}
}

// create registers a new job with a generated ID.
func (s *jobStore) create(filename string) Job {
	job := &Job{
		ID:        uuid.New().String(),
		Filename:  filename,
		Status:    JobUploaded,
		Message:   "File uploaded successfully",
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return *job
}

// get returns a copy of the job, so callers never see concurrent updates
// mid-read.
func (s *jobStore) get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// update applies fn to the stored job under the lock.
func (s *jobStore) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
	}
}

// progress is the common status-bump update.
func (s *jobStore) progress(id string, pct int, message string) {
	s.update(id, func(j *Job) {
		j.Status = JobProcessing
		j.Progress = pct
		j.Message = message
	})
}

// complete marks the job done.
func (s *jobStore) complete(id string) {
	now := time.Now().UTC()
	s.update(id, func(j *Job) {
		j.Status = JobCompleted
		j.Progress = 100
		j.Message = "Processing complete"
		j.CompletedAt = &now
	})
}

// fail records a terminal error.
func (s *jobStore) fail(id string, err error) {
	s.update(id, func(j *Job) {
		j.Status = JobFailed
		j.Error = err.Error()
		j.Message = "Processing failed: " + err.Error()
	})
}
