// -----------------------------------------------------------------------
// Research Job - lifecycle state for a submitted research request
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the job lifecycle state. Terminal states are sticky.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ResearchRequest is the caller-supplied input for a research job.
type ResearchRequest struct {
	Company    string `json:"company" validate:"required,min=1"`
	CompanyURL string `json:"company_url,omitempty" validate:"omitempty,url"`
	Industry   string `json:"industry,omitempty"`
	HQLocation string `json:"hq_location,omitempty"`
}

// JobResult is the terminal payload of a completed job.
type JobResult struct {
	Report  string `json:"report"`
	Company string `json:"company"`
}

// Job tracks one research pipeline run.
type Job struct {
	ID       string          `json:"id" badgerhold:"key"`
	Request  ResearchRequest `json:"request"`
	Status   JobStatus       `json:"status"`
	Progress int             `json:"progress"`
	Message  string          `json:"message,omitempty"`
	Result   *JobResult      `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`

	// DebugLog retains per-stage detail for diagnosis; it is never exposed
	// in the result payload.
	DebugLog []string `json:"debug_log,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending job with a fresh identifier.
func NewJob(req ResearchRequest) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		Request:   req,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal reports whether the job has reached a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Snapshot returns an immutable copy safe to hand to subscribers.
func (j *Job) Snapshot() *Job {
	c := *j
	c.DebugLog = append([]string(nil), j.DebugLog...)
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// MarkProcessing transitions a pending job to processing.
func (j *Job) MarkProcessing() {
	if j.IsTerminal() {
		return
	}
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkCompleted transitions to completed with the final result. Subsequent
// terminal updates are ignored.
func (j *Job) MarkCompleted(result *JobResult) {
	if j.IsTerminal() {
		return
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.Result = result
	j.UpdatedAt = now
	j.CompletedAt = &now
}

// MarkFailed transitions to failed. The result is always nil on failure.
func (j *Job) MarkFailed(errMsg string) {
	if j.IsTerminal() {
		return
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = errMsg
	j.Result = nil
	j.UpdatedAt = now
	j.CompletedAt = &now
}
