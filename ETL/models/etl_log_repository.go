package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/LilVoxy/sakila_analytics/processor"
)

// ErrRunNotFound is returned when a run log entry does not exist
var ErrRunNotFound = errors.New("run not found")

// SQLiteETLLogRepository implements ETLLogRepository on the analytics store
type SQLiteETLLogRepository struct {
	db *sql.DB
}

// NewSQLiteETLLogRepository creates a new SQLiteETLLogRepository
func NewSQLiteETLLogRepository(db *sql.DB) *SQLiteETLLogRepository {
	return &SQLiteETLLogRepository{
		db: db,
	}
}

const runLogColumns = `
	id, run_id, mode, start_time, end_time, status,
	rows_inserted, rows_updated, rows_dropped,
	IFNULL(error_message, ''), IFNULL(execution_time_seconds, 0)`

// CreateLogEntry records the start of a run
func (r *SQLiteETLLogRepository) CreateLogEntry(ctx context.Context, runID, mode string, startTime time.Time) (int64, error) {
	query := `
	INSERT INTO etl_run_log (run_id, mode, start_time, status)
	VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, runID, mode, startTime.UTC(), RunStatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("failed to create run log entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run log entry id: %w", err)
	}

	return id, nil
}

// UpdateLogEntrySuccess closes an entry with the run report
func (r *SQLiteETLLogRepository) UpdateLogEntrySuccess(ctx context.Context, id int64, endTime time.Time, report *RunReport) error {
	startTime, err := r.startTime(ctx, id)
	if err != nil {
		return err
	}

	inserted, updated, dropped := report.Totals()
	blob, err := processor.EncodeDocument(report)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}

	query := `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = ?,
		rows_inserted = ?,
		rows_updated = ?,
		rows_dropped = ?,
		execution_time_seconds = ?,
		report = ?
	WHERE id = ?
	`

	_, err = r.db.ExecContext(ctx, query,
		endTime.UTC(), RunStatusSuccess,
		inserted, updated, dropped,
		endTime.Sub(startTime).Seconds(), blob, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run log entry: %w", err)
	}

	return nil
}

// UpdateLogEntryFailure closes an entry with the error
func (r *SQLiteETLLogRepository) UpdateLogEntryFailure(ctx context.Context, id int64, endTime time.Time, errorMessage string) error {
	startTime, err := r.startTime(ctx, id)
	if err != nil {
		return err
	}

	query := `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = ?,
		error_message = ?,
		execution_time_seconds = ?
	WHERE id = ?
	`

	_, err = r.db.ExecContext(ctx, query,
		endTime.UTC(), RunStatusFailed, errorMessage, endTime.Sub(startTime).Seconds(), id)
	if err != nil {
		return fmt.Errorf("failed to update run log entry: %w", err)
	}

	return nil
}

// GetLastSuccessfulRun returns nil when no run succeeded yet
func (r *SQLiteETLLogRepository) GetLastSuccessfulRun(ctx context.Context) (*ETLRunLog, error) {
	query := `SELECT ` + runLogColumns + `
	FROM etl_run_log
	WHERE status = ?
	ORDER BY id DESC
	LIMIT 1
	`

	log, err := scanRunLog(r.db.QueryRowContext(ctx, query, RunStatusSuccess))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last successful run: %w", err)
	}

	return log, nil
}

// GetETLRunStats lists runs started in the last days, newest first
func (r *SQLiteETLLogRepository) GetETLRunStats(ctx context.Context, days int) ([]ETLRunLog, error) {
	query := `SELECT ` + runLogColumns + `
	FROM etl_run_log
	WHERE julianday(start_time) >= julianday('now', ?)
	ORDER BY id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, "-"+strconv.Itoa(days)+" days")
	if err != nil {
		return nil, fmt.Errorf("failed to query run log: %w", err)
	}
	defer rows.Close()

	var logs []ETLRunLog
	for rows.Next() {
		log, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run log entry: %w", err)
		}
		logs = append(logs, *log)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run log: %w", err)
	}

	return logs, nil
}

// GetRunReport returns the stored report of a run, or nil if the run has none
func (r *SQLiteETLLogRepository) GetRunReport(ctx context.Context, id int64) (*RunReport, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, "SELECT report FROM etl_run_log WHERE id = ?", id).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}
	if len(blob) == 0 {
		return nil, nil
	}

	var report RunReport
	if err := processor.DecodeDocument(blob, &report); err != nil {
		return nil, fmt.Errorf("failed to decode run report: %w", err)
	}
	return &report, nil
}

func (r *SQLiteETLLogRepository) startTime(ctx context.Context, id int64) (time.Time, error) {
	var startTime time.Time
	err := r.db.QueryRowContext(ctx, "SELECT start_time FROM etl_run_log WHERE id = ?", id).Scan(&startTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrRunNotFound
		}
		return time.Time{}, fmt.Errorf("failed to get run start time: %w", err)
	}
	return startTime, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRunLog(row rowScanner) (*ETLRunLog, error) {
	var (
		log     ETLRunLog
		endTime sql.NullTime
	)
	err := row.Scan(
		&log.ID, &log.RunID, &log.Mode, &log.StartTime, &endTime, &log.Status,
		&log.RowsInserted, &log.RowsUpdated, &log.RowsDropped,
		&log.ErrorMessage, &log.ExecutionTimeSeconds,
	)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		end := endTime.Time
		log.EndTime = &end
	}
	return &log, nil
}
