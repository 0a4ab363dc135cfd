package model

import "time"

// JobStatus represents the lifecycle state of a tracked job. Completed
// and failed are terminal; a job never reverts out of them.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobError is the caller-visible failure record for a failed job. It
// deliberately excludes raw provider error bodies and stack traces;
// those stay in internal logs.
type JobError struct {
	Kind        string `json:"kind"`
	Phase       string `json:"phase,omitempty"`
	SupportCode string `json:"support_code,omitempty"`
	Message     string `json:"message"`
}

// Job is one tracked asynchronous unit of orchestration work.
type Job struct {
	ID        string    `json:"id"`
	UnitID    string    `json:"unit_id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// RecordRef is the persisted-record reference, set on completion.
	RecordRef string    `json:"record_ref,omitempty"`
	Error     *JobError `json:"error,omitempty"`
}
