package load

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
)

// Epoch is the watermark of a table that was never synchronized
var Epoch = time.Unix(0, 0).UTC()

// Watermark table names
const (
	WatermarkActor              = "actor"
	WatermarkCategory           = "category"
	WatermarkStore              = "store"
	WatermarkCustomer           = "customer"
	WatermarkFilm               = "film"
	WatermarkDate               = "dim_date"
	WatermarkBridgeFilmActor    = "bridge_film_actor"
	WatermarkBridgeFilmCategory = "bridge_film_category"
	WatermarkFactRental         = "fact_rental"
	WatermarkFactPayment        = "fact_payment"
)

// WatermarkTables lists the watermarks in phase order
var WatermarkTables = []string{
	WatermarkActor, WatermarkCategory, WatermarkStore, WatermarkCustomer, WatermarkFilm,
	WatermarkDate,
	WatermarkBridgeFilmActor, WatermarkBridgeFilmCategory,
	WatermarkFactRental, WatermarkFactPayment,
}

// WatermarkTracker reads and writes sync_state
type WatermarkTracker struct {
	db DBTX
}

// NewWatermarkTracker creates a new WatermarkTracker
func NewWatermarkTracker(db DBTX) *WatermarkTracker {
	return &WatermarkTracker{db: db}
}

// Get returns the last synchronization time of a table, or Epoch
func (w *WatermarkTracker) Get(ctx context.Context, table string) (time.Time, error) {
	var lastRun time.Time
	err := w.db.QueryRowContext(ctx, "SELECT last_run FROM sync_state WHERE table_name = ?", table).Scan(&lastRun)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Epoch, nil
		}
		return time.Time{}, fmt.Errorf("failed to read watermark of %s: %w", table, err)
	}
	return lastRun.UTC(), nil
}

// Set stores the last synchronization time of a table
func (w *WatermarkTracker) Set(ctx context.Context, table string, t time.Time) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO sync_state (table_name, last_run) VALUES (?, ?)
		ON CONFLICT (table_name) DO UPDATE SET last_run = excluded.last_run
	`, table, t.UTC())
	if err != nil {
		return fmt.Errorf("failed to write watermark of %s: %w", table, err)
	}
	return nil
}

// All returns every stored watermark ordered by table name
func (w *WatermarkTracker) All(ctx context.Context) ([]models.SyncState, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT table_name, last_run FROM sync_state ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("failed to read watermarks: %w", err)
	}
	defer rows.Close()

	var states []models.SyncState
	for rows.Next() {
		var s models.SyncState
		if err := rows.Scan(&s.TableName, &s.LastRun); err != nil {
			return nil, fmt.Errorf("failed to scan watermark: %w", err)
		}
		s.LastRun = s.LastRun.UTC()
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watermarks: %w", err)
	}
	return states, nil
}
