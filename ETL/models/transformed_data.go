package models

import (
	"time"
)

// TableStats holds the counters of one table step
type TableStats struct {
	Table     string    `json:"table"`
	Extracted int       `json:"extracted"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Dropped   int       `json:"dropped"`
	Watermark time.Time `json:"watermark"`
}

// DroppedRow identifies a bridge/fact candidate excluded for an unresolved reference
type DroppedRow struct {
	Table      string `json:"table"`
	NaturalKey string `json:"natural_key"`
	Reason     string `json:"reason"`
}

// RunReport summarizes one synchronization run
type RunReport struct {
	RunID      string       `json:"run_id"`
	Mode       string       `json:"mode"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Tables     []TableStats `json:"tables"`
	Dropped    []DroppedRow `json:"dropped,omitempty"`
}

// Table returns the stats of a table step, if present
func (r *RunReport) Table(name string) (TableStats, bool) {
	for _, t := range r.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableStats{}, false
}

// Totals sums inserted, updated and dropped rows across all tables
func (r *RunReport) Totals() (inserted, updated, dropped int) {
	for _, t := range r.Tables {
		inserted += t.Inserted
		updated += t.Updated
		dropped += t.Dropped
	}
	return inserted, updated, dropped
}
