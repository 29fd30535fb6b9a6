package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/LilVoxy/sakila_analytics/ETL/extractors"
	"github.com/LilVoxy/sakila_analytics/ETL/metrics"
	"github.com/LilVoxy/sakila_analytics/ETL/models"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
)

// ErrRunInProgress is returned when a run is requested while another one is active
var ErrRunInProgress = errors.New("a synchronization run is already in progress")

// Mode selects how a run bounds its extraction
type Mode string

// Run modes
const (
	FullLoad    Mode = "full-load"
	Incremental Mode = "incremental"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case FullLoad, Incremental:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown sync mode %q", s)
}

// Synchronizer runs the phase sequence against explicit source and target handles
type Synchronizer struct {
	source extractors.Source
	target *sql.DB
	runLog models.ETLLogRepository
	logger *utils.ETLLogger
	events EventSink
	now    func() time.Time

	mu      sync.Mutex
	running atomic.Bool
}

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithClock overrides the wall clock used for run start and watermarks
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		s.now = now
	}
}

// WithEventSink sets the receiver of run events
func WithEventSink(sink EventSink) Option {
	return func(s *Synchronizer) {
		s.events = sink
	}
}

// WithRunLog overrides the run log repository
func WithRunLog(repo models.ETLLogRepository) Option {
	return func(s *Synchronizer) {
		s.runLog = repo
	}
}

// NewSynchronizer creates a new Synchronizer. The run log defaults to the
// etl_run_log table of the target store.
func NewSynchronizer(source extractors.Source, target *sql.DB, logger *utils.ETLLogger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		source: source,
		target: target,
		runLog: models.NewSQLiteETLLogRepository(target),
		logger: logger,
		events: nopSink{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether a run is active
func (s *Synchronizer) Running() bool {
	return s.running.Load()
}

// Run executes one synchronization run. The whole phase sequence commits or
// rolls back as a unit; the run log entry is written outside that unit so
// failed runs stay recorded.
func (s *Synchronizer) Run(ctx context.Context, mode Mode) (*models.RunReport, error) {
	if err := s.acquire(mode); err != nil {
		return nil, err
	}
	defer s.release()
	return s.run(ctx, mode)
}

// Start claims the run slot and executes the run in the background. It fails
// with ErrRunInProgress, without starting anything, when a run is active.
// The outcome is reported through the run log and the event sink.
func (s *Synchronizer) Start(ctx context.Context, mode Mode) error {
	if err := s.acquire(mode); err != nil {
		return err
	}
	go func() {
		defer s.release()
		_, _ = s.run(ctx, mode)
	}()
	return nil
}

func (s *Synchronizer) acquire(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	if !s.mu.TryLock() {
		return ErrRunInProgress
	}
	s.running.Store(true)
	return nil
}

func (s *Synchronizer) release() {
	s.running.Store(false)
	s.mu.Unlock()
}

func (s *Synchronizer) run(ctx context.Context, mode Mode) (*models.RunReport, error) {
	startTime := s.now().UTC()
	report := &models.RunReport{
		RunID:     uuid.NewString(),
		Mode:      string(mode),
		StartedAt: startTime,
	}
	logger := s.logger.With("run_id", report.RunID, "mode", string(mode))
	logger.Info("Starting %s run", mode)

	logID, err := s.runLog.CreateLogEntry(ctx, report.RunID, string(mode), startTime)
	if err != nil {
		logger.Error("Failed to create run log entry: %v", err)
		return nil, fmt.Errorf("failed to create run log entry: %w", err)
	}

	s.events.Publish(Event{Type: EventRunStarted, RunID: report.RunID, Mode: mode, Time: startTime})

	r := &run{
		sync:   s,
		logger: logger,
		mode:   mode,
		start:  startTime,
		report: report,
		marks:  make(map[string]time.Time),
	}
	err = r.execute(ctx)
	endTime := s.now().UTC()
	report.FinishedAt = endTime

	if err != nil {
		logger.Error("Run failed after %v: %v", endTime.Sub(startTime), err)
		if logErr := s.runLog.UpdateLogEntryFailure(ctx, logID, endTime, err.Error()); logErr != nil {
			logger.Error("Failed to update run log: %v", logErr)
		}
		metrics.RecordRun(string(mode), models.RunStatusFailed, endTime.Sub(startTime))
		s.events.Publish(Event{Type: EventRunFailed, RunID: report.RunID, Mode: mode, Time: endTime, Error: err.Error()})
		return nil, err
	}

	if logErr := s.runLog.UpdateLogEntrySuccess(ctx, logID, endTime, report); logErr != nil {
		logger.Error("Failed to update run log: %v", logErr)
	}
	r.announce()
	metrics.RecordRun(string(mode), models.RunStatusSuccess, endTime.Sub(startTime))

	inserted, updated, dropped := report.Totals()
	logger.Info("Run complete in %v: %d inserted, %d updated, %d dropped",
		endTime.Sub(startTime), inserted, updated, dropped)
	s.events.Publish(Event{Type: EventRunFinished, RunID: report.RunID, Mode: mode, Time: endTime, Report: report})

	return report, nil
}
