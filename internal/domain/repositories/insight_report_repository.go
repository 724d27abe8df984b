package repositories

import (
	"context"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// InsightReportRepository persists insight reports
type InsightReportRepository interface {
	// Create inserts a new report
	Create(ctx context.Context, report *entities.InsightReport) error

	// UpdateIfGenerating overwrites every mutable field of a report that is still generating.
	// It returns false when the report is missing or already in a terminal state.
	UpdateIfGenerating(ctx context.Context, report *entities.InsightReport) (bool, error)

	// GetByID retrieves a report by ID
	GetByID(ctx context.Context, id string) (*entities.InsightReport, error)

	// FindGeneratingByOwner returns the newest generating report of an owner, or nil
	FindGeneratingByOwner(ctx context.Context, ownerID string) (*entities.InsightReport, error)

	// ListByOwner returns an owner's reports, newest first
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entities.InsightReport, error)

	// FailStaleGenerating marks every generating report created before cutoff as failed
	// and returns the affected reports
	FailStaleGenerating(ctx context.Context, cutoff time.Time, reason string) ([]*entities.InsightReport, error)
}
