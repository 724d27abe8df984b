package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

const insightReportsTable = "insight_reports"

// InsightReportAdapter implements InsightReportRepository
type InsightReportAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewInsightReportAdapter creates a new insight report adapter
func NewInsightReportAdapter(client *postgres.Client) repositories.InsightReportRepository {
	return &InsightReportAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var reportColumns = []interface{}{
	"id", "owner_id", "title", "status", "period_start", "period_end",
	"book_analysis", "chart_data", "ai_insights", "conclusion", "recommendations",
	"total_books_analyzed", "failure_reason", "created_at", "updated_at", "completed_at",
}

func reportRecord(report *entities.InsightReport) (goqu.Record, error) {
	bookAnalysis := report.BookAnalysis
	if bookAnalysis == nil {
		bookAnalysis = []entities.BookAnalysis{}
	}
	recommendations := report.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}

	analysisJSON, err := json.Marshal(bookAnalysis)
	if err != nil {
		return nil, err
	}
	chartJSON, err := json.Marshal(report.ChartData)
	if err != nil {
		return nil, err
	}
	insightsJSON, err := json.Marshal(report.AIInsights)
	if err != nil {
		return nil, err
	}
	recsJSON, err := json.Marshal(recommendations)
	if err != nil {
		return nil, err
	}

	return goqu.Record{
		"owner_id":             report.OwnerID,
		"title":                report.Title,
		"status":               string(report.Status),
		"period_start":         report.PeriodStart,
		"period_end":           report.PeriodEnd,
		"book_analysis":        string(analysisJSON),
		"chart_data":           string(chartJSON),
		"ai_insights":          string(insightsJSON),
		"conclusion":           report.Conclusion,
		"recommendations":      string(recsJSON),
		"total_books_analyzed": report.TotalBooksAnalyzed,
		"failure_reason":       report.FailureReason,
		"updated_at":           report.UpdatedAt,
		"completed_at":         report.CompletedAt,
	}, nil
}

func scanReport(row rowScanner) (*entities.InsightReport, error) {
	report := &entities.InsightReport{}
	var status string
	var analysisJSON, chartJSON, insightsJSON, recsJSON []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&report.ID,
		&report.OwnerID,
		&report.Title,
		&status,
		&report.PeriodStart,
		&report.PeriodEnd,
		&analysisJSON,
		&chartJSON,
		&insightsJSON,
		&report.Conclusion,
		&recsJSON,
		&report.TotalBooksAnalyzed,
		&report.FailureReason,
		&report.CreatedAt,
		&report.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	report.Status = entities.ReportStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		report.CompletedAt = &t
	}
	if err := unmarshalColumn(analysisJSON, &report.BookAnalysis); err != nil {
		return nil, fmt.Errorf("book_analysis: %w", err)
	}
	if err := unmarshalColumn(chartJSON, &report.ChartData); err != nil {
		return nil, fmt.Errorf("chart_data: %w", err)
	}
	if err := unmarshalColumn(insightsJSON, &report.AIInsights); err != nil {
		return nil, fmt.Errorf("ai_insights: %w", err)
	}
	if err := unmarshalColumn(recsJSON, &report.Recommendations); err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	return report, nil
}

func unmarshalColumn(data []byte, target interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}

// Create inserts a new report
func (a *InsightReportAdapter) Create(ctx context.Context, report *entities.InsightReport) error {
	record, err := reportRecord(report)
	if err != nil {
		return apperrors.NewInternalError("failed to encode report", err)
	}
	record["id"] = report.ID
	record["created_at"] = report.CreatedAt

	query, args, err := a.db.Insert(insightReportsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create insight report", err)
	}
	return nil
}

// UpdateIfGenerating overwrites every mutable field of a report that is still generating.
// Reports already failed or completed are left untouched and false is returned.
func (a *InsightReportAdapter) UpdateIfGenerating(ctx context.Context, report *entities.InsightReport) (bool, error) {
	record, err := reportRecord(report)
	if err != nil {
		return false, apperrors.NewInternalError("failed to encode report", err)
	}

	query, args, err := a.db.Update(insightReportsTable).
		Set(record).
		Where(goqu.Ex{
			"id":     report.ID,
			"status": string(entities.ReportStatusGenerating),
		}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to update insight report", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to read affected rows", err)
	}
	return affected > 0, nil
}

// GetByID retrieves a report by ID
func (a *InsightReportAdapter) GetByID(ctx context.Context, id string) (*entities.InsightReport, error) {
	query, args, err := a.db.From(insightReportsTable).
		Select(reportColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	report, err := scanReport(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("insight report with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get insight report", err)
	}
	return report, nil
}

// FindGeneratingByOwner returns the newest generating report of an owner, or nil
func (a *InsightReportAdapter) FindGeneratingByOwner(ctx context.Context, ownerID string) (*entities.InsightReport, error) {
	query, args, err := a.db.From(insightReportsTable).
		Select(reportColumns...).
		Where(goqu.Ex{
			"owner_id": ownerID,
			"status":   string(entities.ReportStatusGenerating),
		}).
		Order(goqu.I("created_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	report, err := scanReport(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to find generating report", err)
	}
	return report, nil
}

// ListByOwner returns an owner's reports, newest first
func (a *InsightReportAdapter) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entities.InsightReport, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query, args, err := a.db.From(insightReportsTable).
		Select(reportColumns...).
		Where(goqu.Ex{"owner_id": ownerID}).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryReports(ctx, query, args, "list insight reports")
}

// FailStaleGenerating marks every generating report created before cutoff as failed
func (a *InsightReportAdapter) FailStaleGenerating(ctx context.Context, cutoff time.Time, reason string) ([]*entities.InsightReport, error) {
	now := time.Now().UTC()
	query, args, err := a.db.Update(insightReportsTable).
		Set(goqu.Record{
			"status":         string(entities.ReportStatusFailed),
			"failure_reason": reason,
			"updated_at":     now,
			"completed_at":   now,
		}).
		Where(
			goqu.C("status").Eq(string(entities.ReportStatusGenerating)),
			goqu.C("created_at").Lt(cutoff),
		).
		Returning(reportColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	return a.queryReports(ctx, query, args, "fail stale insight reports")
}

func (a *InsightReportAdapter) queryReports(ctx context.Context, query string, args []interface{}, op string) ([]*entities.InsightReport, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to "+op, err)
	}
	defer rows.Close()

	reports := []*entities.InsightReport{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan insight report", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate insight reports", err)
	}
	return reports, nil
}
