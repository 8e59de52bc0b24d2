package store

import (
	"time"

	"fx_market_engine/models"
)

// BeginJob creates a "running" JobRun row marking the start of a
// scheduler invocation. The caller holds onto the returned row and passes
// it back to EndJob once the job finishes, success or not.
func (s *Store) BeginJob(name string) (*models.JobRun, error) {
	run := &models.JobRun{
		JobName:   name,
		StartTime: time.Now().UTC(),
		Status:    models.JobStatusRunning,
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, wrapUnavailable(err)
	}
	return run, nil
}

// EndJob finalizes a JobRun row with its terminal status, duration, and
// (on failure) error message.
func (s *Store) EndJob(run *models.JobRun, status models.JobStatus, errMsg string, records int) error {
	end := time.Now().UTC()
	run.EndTime = &end
	run.DurationSeconds = end.Sub(run.StartTime).Seconds()
	run.Status = status
	run.ErrorMessage = errMsg
	run.RecordsProcessed = records

	err := s.db.Model(run).Updates(map[string]any{
		"end_time":          run.EndTime,
		"duration_seconds":  run.DurationSeconds,
		"status":            run.Status,
		"error_message":     run.ErrorMessage,
		"records_processed": run.RecordsProcessed,
	}).Error
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// RecentJobRuns returns the most recent job-run audit rows, newest first,
// optionally filtered by job name (pass "" for all jobs).
func (s *Store) RecentJobRuns(name string, limit int) ([]models.JobRun, error) {
	q := s.db.Order("start_time DESC").Limit(limit)
	if name != "" {
		q = q.Where("job_name = ?", name)
	}
	var rows []models.JobRun
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapUnavailable(err)
	}
	return rows, nil
}
