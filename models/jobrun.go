package models

import "time"

// JobStatus is the lifecycle state of a JobRun.
type JobStatus string

const (
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// JobRun is an append-only audit row of one scheduler invocation.
type JobRun struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	JobName           string     `gorm:"index" json:"job_name"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	DurationSeconds   float64    `json:"duration_seconds"`
	Status            JobStatus  `json:"status"`
	ErrorMessage      string     `json:"error_message"`
	RecordsProcessed  int        `json:"records_processed"`
}
