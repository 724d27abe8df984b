package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
)

const defaultProgressInterval = 2 * time.Second

// SSEHandler streams report lifecycle events and progress snapshots
type SSEHandler struct {
	reports  ReportManager
	eventBus providers.EventBus
	interval time.Duration
}

// NewSSEHandler creates a new SSE handler. interval <= 0 uses 2s.
func NewSSEHandler(reports ReportManager, eventBus providers.EventBus, interval time.Duration) *SSEHandler {
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	return &SSEHandler{reports: reports, eventBus: eventBus, interval: interval}
}

// StreamReport handles GET /api/reports/{id}/stream. The stream ends once the report
// reaches a terminal state or the client disconnects.
func (h *SSEHandler) StreamReport(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	reportID := r.PathValue("id")

	if _, err := h.reports.GetReport(r.Context(), ownerID, reportID); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	logger := observability.LoggerFromContext(r.Context())
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var events <-chan *entities.ReportEvent
	if h.eventBus != nil {
		ch, err := h.eventBus.Subscribe(ctx, providers.GetReportChannel(reportID))
		if err != nil {
			logger.Warn().Err(err).Str("report_id", reportID).Msg("report events unavailable, streaming progress only")
		} else {
			events = ch
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if done := h.sendProgress(ctx, w, reportID); done {
		flusher.Flush()
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Str("report_id", reportID).Msg("client disconnected from report stream")
			return
		case <-ticker.C:
			done := h.sendProgress(ctx, w, reportID)
			flusher.Flush()
			if done {
				return
			}
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			sendEvent(w, string(event.EventType), event)
			if event.Status.IsTerminal() {
				h.sendProgress(ctx, w, reportID)
				flusher.Flush()
				return
			}
			flusher.Flush()
		}
	}
}

// sendProgress writes one progress snapshot and reports whether the report is terminal
func (h *SSEHandler) sendProgress(ctx context.Context, w http.ResponseWriter, reportID string) bool {
	progress, err := h.reports.ReportProgress(ctx, reportID)
	if err != nil {
		sendEvent(w, "error", map[string]string{"error": "progress unavailable"})
		return false
	}
	sendEvent(w, "progress", progress)
	return progress.Status.IsTerminal()
}

func sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
