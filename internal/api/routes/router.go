package routes

import (
	"context"
	"net/http"

	"github.com/pagewise/bookstore/backend/internal/api/handlers"
	"github.com/pagewise/bookstore/backend/internal/api/middleware"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler  *handlers.SearchHandler
	compareHandler *handlers.CompareHandler
	reportHandler  *handlers.ReportHandler
	sseHandler     *handlers.SSEHandler

	analyticsHandler *handlers.AnalyticsHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
	ready           HealthCheck
}

// NewRouter creates a new router. cacheMiddleware and ready may be nil.
func NewRouter(
	searchHandler *handlers.SearchHandler,
	compareHandler *handlers.CompareHandler,
	reportHandler *handlers.ReportHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
	ready HealthCheck,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		searchHandler:   searchHandler,
		compareHandler:  compareHandler,
		reportHandler:   reportHandler,
		sseHandler:      sseHandler,
		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
		ready:           ready,
	}
}

// SetAnalyticsHandler enables the search analytics admin routes
func (r *Router) SetAnalyticsHandler(h *handlers.AnalyticsHandler) {
	r.analyticsHandler = h
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.mux.HandleFunc("GET /ready", r.readiness)

	// Search
	r.mux.HandleFunc("GET /api/search", r.searchHandler.Search)
	r.mux.HandleFunc("POST /api/search/classify", r.searchHandler.Classify)
	r.mux.HandleFunc("POST /api/search/conversation", r.searchHandler.Converse)

	// Comparison
	r.mux.HandleFunc("POST /api/compare", r.compareHandler.Compare)

	// Insight reports
	r.mux.HandleFunc("POST /api/reports", r.reportHandler.StartReport)
	r.mux.HandleFunc("GET /api/reports", r.reportHandler.ListReports)
	r.mux.HandleFunc("GET /api/reports/{id}", r.reportHandler.GetReport)
	r.mux.HandleFunc("GET /api/reports/{id}/progress", r.reportHandler.GetProgress)
	r.mux.HandleFunc("GET /api/reports/{id}/stream", r.sseHandler.StreamReport)
	r.mux.HandleFunc("POST /api/admin/reports/cleanup", r.reportHandler.Cleanup)

	if r.analyticsHandler != nil {
		r.mux.HandleFunc("GET /api/admin/search/zero-results", r.analyticsHandler.ZeroResultQueries)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}

func (r *Router) readiness(w http.ResponseWriter, req *http.Request) {
	if r.ready != nil {
		if err := r.ready(req.Context()); err != nil {
			observability.LoggerFromContext(req.Context()).Warn().Err(err).Msg("readiness check failed")
			http.Error(w, "NOT READY", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}
