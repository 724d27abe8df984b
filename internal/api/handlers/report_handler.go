package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pagewise/bookstore/backend/internal/application/services"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// ReportManager runs and queries insight reports
type ReportManager interface {
	Start(ctx context.Context, ownerID string, windowDays int) (*entities.ReportHandle, error)
	GetReport(ctx context.Context, ownerID, reportID string) (*entities.InsightReport, error)
	ListReports(ctx context.Context, ownerID string, limit, offset int) ([]*entities.InsightReport, error)
	ReportProgress(ctx context.Context, reportID string) (*entities.ReportProgress, error)
	CleanupStuckReports(ctx context.Context, staleAfter time.Duration) (int, error)
}

// ReportHandler handles insight report requests
type ReportHandler struct {
	reports           ReportManager
	defaultStaleAfter time.Duration
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports ReportManager, defaultStaleAfter time.Duration) *ReportHandler {
	if defaultStaleAfter <= 0 {
		defaultStaleAfter = 5 * time.Minute
	}
	return &ReportHandler{reports: reports, defaultStaleAfter: defaultStaleAfter}
}

type startReportRequest struct {
	WindowDays int `json:"window_days"`
}

// StartReport handles POST /api/reports
func (h *ReportHandler) StartReport(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req startReportRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	handle, err := h.reports.Start(r.Context(), ownerID, req.WindowDays)
	if err != nil {
		if existingID, inProgress := services.IsReportInProgress(err); inProgress {
			respondWithJSON(w, http.StatusConflict, map[string]string{
				"error":              "a report is already being generated",
				"existing_report_id": existingID,
			})
			return
		}
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, handle)
}

// ListReports handles GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	reports, err := h.reports.ListReports(r.Context(), ownerID, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if reports == nil {
		reports = []*entities.InsightReport{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// GetReport handles GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	report, err := h.reports.GetReport(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// GetProgress handles GET /api/reports/{id}/progress
func (h *ReportHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	reportID := r.PathValue("id")

	if _, err := h.reports.GetReport(r.Context(), ownerID, reportID); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	progress, err := h.reports.ReportProgress(r.Context(), reportID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, progress)
}

type cleanupRequest struct {
	StaleAfter string `json:"stale_after"`
}

// Cleanup handles POST /api/admin/reports/cleanup
func (h *ReportHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	staleAfter := h.defaultStaleAfter
	if req.StaleAfter != "" {
		d, err := time.ParseDuration(req.StaleAfter)
		if err != nil || d <= 0 {
			respondWithError(w, http.StatusBadRequest, "stale_after must be a positive duration such as 5m")
			return
		}
		staleAfter = d
	}

	n, err := h.reports.CleanupStuckReports(r.Context(), staleAfter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"failed_reports": n,
		"stale_after":    staleAfter.String(),
	})
}
