package pipeline

import (
	"time"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
)

// EventType names a run lifecycle event
type EventType string

// Run lifecycle events
const (
	EventRunStarted  EventType = "run_started"
	EventTableSynced EventType = "table_synced"
	EventRunFinished EventType = "run_finished"
	EventRunFailed   EventType = "run_failed"
)

// Event is published to the EventSink while a run progresses
type Event struct {
	Type   EventType          `json:"type"`
	RunID  string             `json:"run_id"`
	Mode   Mode               `json:"mode"`
	Time   time.Time          `json:"time"`
	Table  *models.TableStats `json:"table,omitempty"`
	Report *models.RunReport  `json:"report,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// EventSink receives run events. Publish must not block the run.
type EventSink interface {
	Publish(event Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(event Event)

// Publish calls f(event)
func (f EventSinkFunc) Publish(event Event) {
	f(event)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}
