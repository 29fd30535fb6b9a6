package models

import (
	"context"
	"time"
)

// Run statuses recorded in etl_run_log
const (
	RunStatusInProgress = "in_progress"
	RunStatusSuccess    = "success"
	RunStatusFailed     = "failed"
)

// ETLRunLog is one entry of the run log
type ETLRunLog struct {
	ID                   int64      `json:"id"`
	RunID                string     `json:"run_id"`
	Mode                 string     `json:"mode"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	Status               string     `json:"status"`
	RowsInserted         int        `json:"rows_inserted"`
	RowsUpdated          int        `json:"rows_updated"`
	RowsDropped          int        `json:"rows_dropped"`
	ErrorMessage         string     `json:"error_message,omitempty"`
	ExecutionTimeSeconds float64    `json:"execution_time_seconds"`
}

// ETLLogRepository persists the run log
type ETLLogRepository interface {
	// CreateLogEntry records the start of a run
	CreateLogEntry(ctx context.Context, runID, mode string, startTime time.Time) (int64, error)

	// UpdateLogEntrySuccess closes an entry with the run report
	UpdateLogEntrySuccess(ctx context.Context, id int64, endTime time.Time, report *RunReport) error

	// UpdateLogEntryFailure closes an entry with the error
	UpdateLogEntryFailure(ctx context.Context, id int64, endTime time.Time, errorMessage string) error

	// GetLastSuccessfulRun returns nil when no run succeeded yet
	GetLastSuccessfulRun(ctx context.Context) (*ETLRunLog, error)

	// GetETLRunStats lists runs started in the last days
	GetETLRunStats(ctx context.Context, days int) ([]ETLRunLog, error)

	// GetRunReport returns the stored report of a run, or nil if the run has none
	GetRunReport(ctx context.Context, id int64) (*RunReport, error)
}

// ETLStateMonitor is the status document served by the monitor API
type ETLStateMonitor struct {
	LastSuccessfulRun *ETLRunLog  `json:"last_successful_run"`
	Watermarks        []SyncState `json:"watermarks"`
	Running           bool        `json:"running"`
}
