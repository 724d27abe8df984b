package entities

import (
	"time"

	"github.com/google/uuid"
)

// ReportEventType represents a report lifecycle transition
type ReportEventType string

const (
	ReportEventCreated   ReportEventType = "report_created"
	ReportEventCompleted ReportEventType = "report_completed"
	ReportEventFailed    ReportEventType = "report_failed"
	ReportEventStale     ReportEventType = "report_stale"
	ReportEventProgress  ReportEventType = "report_progress"
)

// ReportEvent is published whenever a report changes state
type ReportEvent struct {
	ID              string          `json:"id"`
	ReportID        string          `json:"report_id"`
	OwnerID         string          `json:"owner_id"`
	EventType       ReportEventType `json:"event_type"`
	Status          ReportStatus    `json:"status"`
	ProgressPercent int             `json:"progress_percent"`
	Message         string          `json:"message,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// NewReportEvent creates a new report event for the given report state
func NewReportEvent(report *InsightReport, eventType ReportEventType, message string) *ReportEvent {
	ev := &ReportEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
	if report != nil {
		ev.ReportID = report.ID
		ev.OwnerID = report.OwnerID
		ev.Status = report.Status
		if report.Status == ReportStatusCompleted {
			ev.ProgressPercent = 100
		}
	}
	return ev
}
