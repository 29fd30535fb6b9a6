package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/LilVoxy/sakila_analytics/ETL/utils"
)

// NewScheduler schedules an incremental run every interval, starting
// immediately. Overlapping ticks are skipped.
func NewScheduler(s *Synchronizer, interval time.Duration, logger *utils.ETLLogger) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	_, err := scheduler.Every(interval).Do(func() {
		logger.Info("Scheduled incremental run")
		if _, err := s.Run(context.Background(), Incremental); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				logger.Warn("Skipping scheduled run: %v", err)
				return
			}
			logger.Error("Scheduled incremental run failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule incremental sync: %w", err)
	}
	return scheduler, nil
}

// StartScheduler runs incremental sync every interval until ctx is done
func StartScheduler(ctx context.Context, s *Synchronizer, interval time.Duration, logger *utils.ETLLogger) error {
	scheduler, err := NewScheduler(s, interval, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting scheduler with interval %v", interval)
	scheduler.StartAsync()

	<-ctx.Done()

	scheduler.Stop()
	logger.Info("Scheduler stopped")
	return nil
}
