package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the job can no longer change state on the
// backend. Unknown statuses are treated as non-terminal so that new backend
// states keep flowing through the stream rather than getting archived away.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job is a backend-tracked asynchronous unit of work (image analysis or
// generation). The backend owns the record; we only identify jobs by JobID
// and treat Result as opaque.
type Job struct {
	JobID    string
	Status   JobStatus
	Progress float64
	Result   json.RawMessage
	Error    *string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}
