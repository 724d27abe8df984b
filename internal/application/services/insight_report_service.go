package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pagewise/bookstore/backend/internal/analysis"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
	"github.com/pagewise/bookstore/backend/pkg/retry"
	"github.com/pagewise/bookstore/backend/pkg/tasks"
	"github.com/pagewise/bookstore/backend/pkg/utils"
)

const (
	reportComponent = "insight_report"

	// GenericReportFailure is the user-visible reason of a failed report
	GenericReportFailure = "Report generation failed. Please try again."
	// StaleReportFailure is recorded on reports abandoned in generating state
	StaleReportFailure = "Report generation timed out and was abandoned."

	maxGeneratingProgress = 90
	finalizeTimeout       = 10 * time.Second
)

// ReportServiceConfig tunes the report pipeline
type ReportServiceConfig struct {
	StaleAfter        time.Duration
	DefaultWindowDays int
	TopBooks          int
	GenerationPolicy  retry.Config
	// EstimatedDuration drives the estimated completion time and the progress curve
	EstimatedDuration time.Duration
}

// DefaultReportServiceConfig returns the production defaults
func DefaultReportServiceConfig() ReportServiceConfig {
	return ReportServiceConfig{
		StaleAfter:        10 * time.Minute,
		DefaultWindowDays: 30,
		TopBooks:          10,
		GenerationPolicy:  retry.ReportGenerationPolicy(),
		EstimatedDuration: time.Minute,
	}
}

// InsightReportService generates sales insight reports in the background. A report is
// created in generating state and only ever written again in its terminal state.
type InsightReportService struct {
	reports   repositories.InsightReportRepository
	orders    repositories.OrderRepository
	books     repositories.BookRepository
	generator providers.TextGenerator
	analyzer  *analysis.Analyzer
	events    providers.EventBus
	runner    *tasks.Runner
	metrics   *observability.Metrics
	cfg       ReportServiceConfig

	now     func() time.Time
	newRand func() *rand.Rand
}

// NewInsightReportService creates a new report service. events may be nil.
func NewInsightReportService(
	reports repositories.InsightReportRepository,
	orders repositories.OrderRepository,
	books repositories.BookRepository,
	generator providers.TextGenerator,
	analyzer *analysis.Analyzer,
	events providers.EventBus,
	runner *tasks.Runner,
	metrics *observability.Metrics,
	cfg ReportServiceConfig,
) *InsightReportService {
	defaults := DefaultReportServiceConfig()
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaults.StaleAfter
	}
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = defaults.DefaultWindowDays
	}
	if cfg.TopBooks <= 0 {
		cfg.TopBooks = defaults.TopBooks
	}
	if cfg.GenerationPolicy.MaxAttempts <= 0 {
		cfg.GenerationPolicy = defaults.GenerationPolicy
	}
	if cfg.EstimatedDuration <= 0 {
		cfg.EstimatedDuration = defaults.EstimatedDuration
	}
	if analyzer == nil {
		analyzer = analysis.NewDefault()
	}

	return &InsightReportService{
		reports:   reports,
		orders:    orders,
		books:     books,
		generator: generator,
		analyzer:  analyzer,
		events:    events,
		runner:    runner,
		metrics:   metrics,
		cfg:       cfg,
		now:       time.Now,
		newRand:   analysis.NewRand,
	}
}

// Start creates a generating report for ownerID and runs the analysis in the background.
// A younger generating report of the same owner blocks the request with a conflict
// wrapping *ReportInProgressError; an older one is failed as stale first.
func (s *InsightReportService) Start(ctx context.Context, ownerID string, windowDays int) (*entities.ReportHandle, error) {
	report, err := s.prepare(ctx, ownerID, windowDays)
	if err != nil {
		return nil, err
	}

	reportID := report.ID
	if err := s.runner.Go("report_analysis", func(ctx context.Context) error {
		return s.RunAnalysis(ctx, reportID)
	}); err != nil {
		s.finalizeFailed(ctx, report, err)
		return nil, apperrors.NewInternalError("failed to schedule report generation", err)
	}

	return &entities.ReportHandle{
		ReportID:            report.ID,
		Status:              report.Status,
		EstimatedCompletion: report.CreatedAt.Add(s.cfg.EstimatedDuration),
	}, nil
}

// Generate creates a report and runs the analysis synchronously
func (s *InsightReportService) Generate(ctx context.Context, ownerID string, windowDays int) (*entities.InsightReport, error) {
	report, err := s.prepare(ctx, ownerID, windowDays)
	if err != nil {
		return nil, err
	}
	if err := s.RunAnalysis(ctx, report.ID); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("report_id", report.ID).Msg("report analysis failed")
	}
	return s.reports.GetByID(ctx, report.ID)
}

func (s *InsightReportService) prepare(ctx context.Context, ownerID string, windowDays int) (*entities.InsightReport, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.NewValidationError("owner id is required")
	}
	if windowDays < 0 {
		return nil, apperrors.NewValidationError("window days must be positive")
	}
	if windowDays == 0 {
		windowDays = s.cfg.DefaultWindowDays
	}

	logger := observability.LoggerFromContext(ctx)
	now := s.now()

	existing, err := s.reports.FindGeneratingByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if now.Sub(existing.CreatedAt) < s.cfg.StaleAfter {
			return nil, apperrors.NewConflictError(
				"a report is already being generated",
				&ReportInProgressError{ExistingReportID: existing.ID},
			)
		}

		logger.Warn().
			Str("component", reportComponent).
			Str("report_id", existing.ID).
			Time("created_at", existing.CreatedAt).
			Msg("replacing stale generating report")
		existing.Status = entities.ReportStatusFailed
		existing.FailureReason = StaleReportFailure
		existing.UpdatedAt = now
		existing.CompletedAt = &now
		updated, err := s.reports.UpdateIfGenerating(ctx, existing)
		if err != nil {
			return nil, err
		}
		if updated {
			observability.RecordReportFinalized(ctx, s.metrics, string(entities.ReportStatusFailed))
			s.publish(ctx, existing, entities.ReportEventStale, StaleReportFailure)
		}
	}

	start := now.AddDate(0, 0, -windowDays)
	report := &entities.InsightReport{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Title:           reportTitle(start, now),
		Status:          entities.ReportStatusGenerating,
		PeriodStart:     start,
		PeriodEnd:       now,
		BookAnalysis:    []entities.BookAnalysis{},
		Recommendations: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	logger.Info().Str("report_id", report.ID).Str("owner_id", ownerID).Int("window_days", windowDays).Msg("report generation started")
	s.publish(ctx, report, entities.ReportEventCreated, "")
	return report, nil
}

func reportTitle(start, end time.Time) string {
	return fmt.Sprintf("Sales insights %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// RunAnalysis executes the pipeline for a generating report. Every error or panic
// finalizes the report as failed and is returned to the caller. A report that reached a
// terminal state meanwhile keeps that state.
func (s *InsightReportService) RunAnalysis(ctx context.Context, reportID string) (err error) {
	ctx, span := observability.StartSpan(ctx, "InsightReportService.RunAnalysis")
	defer span.End()

	logger := observability.LoggerFromContext(ctx).With().Str("report_id", reportID).Logger()

	var report *entities.InsightReport
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("report analysis panic: %v", rec)
		}
		if err == nil || errors.Is(err, errReportNotGenerating) {
			return
		}
		observability.RecordError(span, err)
		logger.Error().Err(err).Msg("report generation failed")
		if report == nil {
			report = s.reloadForFailure(ctx, reportID)
		}
		if report != nil {
			s.finalizeFailed(ctx, report, err)
		}
	}()

	loaded, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	report = loaded
	if report.Status != entities.ReportStatusGenerating {
		return fmt.Errorf("report %s is %s: %w", reportID, report.Status, errReportNotGenerating)
	}

	if err := s.analyze(ctx, &logger, report); err != nil {
		return err
	}

	completedAt := s.now()
	report.Status = entities.ReportStatusCompleted
	report.UpdatedAt = completedAt
	report.CompletedAt = &completedAt
	updated, err := s.reports.UpdateIfGenerating(ctx, report)
	if err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	if !updated {
		logger.Warn().Str("component", reportComponent).Msg("report was finalized elsewhere; discarding analysis")
		return nil
	}

	observability.RecordReportFinalized(ctx, s.metrics, string(entities.ReportStatusCompleted))
	s.publish(ctx, report, entities.ReportEventCompleted, "")
	logger.Info().Int("books_analyzed", report.TotalBooksAnalyzed).Msg("report completed")
	return nil
}

func (s *InsightReportService) analyze(ctx context.Context, logger *zerolog.Logger, report *entities.InsightReport) error {
	items, err := s.soldItems(ctx, report.PeriodStart, report.PeriodEnd)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		logger.Info().Msg("no sales in report window")
		report.AIInsights = entities.AIInsights{Summary: analysis.NoSalesSummary}
		report.Conclusion = analysis.NoSalesConclusion
		report.BookAnalysis = []entities.BookAnalysis{}
		report.Recommendations = []string{}
		report.ChartData = entities.ChartData{
			TopBooks:           []entities.TopBookPoint{},
			ReasonDistribution: []entities.ReasonShare{},
			Trends:             []entities.TrendPoint{},
			Correlations: entities.CorrelationSummary{
				PriceSales:   s.analyzer.PriceSalesCorrelation(nil),
				RatingImpact: s.analyzer.RatingImpact(nil),
			},
		}
		report.TotalBooksAnalyzed = 0
		return nil
	}

	stats := s.analyzer.Analyze(items, s.cfg.TopBooks, s.newRand())
	windowDays := int(math.Round(report.PeriodEnd.Sub(report.PeriodStart).Hours() / 24))
	ai := s.generateNarrative(ctx, logger, buildReportPayload(windowDays, stats), narrativeDefaults(stats))

	mergeReport(report, stats, ai)
	report.TotalBooksAnalyzed = len(items)
	return nil
}

func (s *InsightReportService) soldItems(ctx context.Context, start, end time.Time) ([]entities.SoldItem, error) {
	facts, err := s.orders.AggregateSales(ctx, repositories.SalesWindow{Start: start, End: end}, repositories.SoldOrderStatuses, 0)
	if err != nil {
		return nil, fmt.Errorf("aggregate sales: %w", err)
	}
	if len(facts) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(facts))
	for _, f := range facts {
		ids = append(ids, f.BookID)
	}
	books, err := s.books.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load sold books: %w", err)
	}
	byID := make(map[string]*entities.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	items := make([]entities.SoldItem, 0, len(facts))
	for _, f := range facts {
		book, ok := byID[f.BookID]
		if !ok {
			// sold but since removed from the catalog
			continue
		}
		items = append(items, entities.NewSoldItem(book, f))
	}
	return items, nil
}

type reportModelResponse struct {
	Summary            string            `json:"summary"`
	SalesTrends        string            `json:"salesTrends"`
	PricingInsights    string            `json:"pricingInsights"`
	CustomerBehavior   string            `json:"customerBehavior"`
	Opportunities      string            `json:"opportunities"`
	Conclusion         string            `json:"conclusion"`
	Recommendations    []string          `json:"recommendations"`
	BookReasons        map[string]string `json:"bookReasons"`
	ReasonDistribution []struct {
		Reason string  `json:"reason"`
		Count  float64 `json:"count"`
	} `json:"reasonDistribution"`
}

func buildReportPayload(windowDays int, stats analysis.Result) reportPromptPayload {
	patterns := make([]reportPromptPattern, 0, len(stats.Patterns))
	for _, p := range stats.Patterns {
		patterns = append(patterns, reportPromptPattern{
			Type:        p.Type,
			Description: p.Description,
			Matches:     len(p.MatchedItems),
			Confidence:  p.Confidence,
		})
	}
	return reportPromptPayload{
		PeriodDays:   windowDays,
		Metrics:      stats.Metrics,
		Correlation:  stats.Correlation,
		RatingImpact: stats.RatingImpact,
		TopBooks:     stats.BookAnalysis,
		Patterns:     patterns,
		Insights:     stats.Insights,
		Trends:       stats.Trends,
		Reasons:      stats.ReasonDistribution,
	}
}

// narrativeKeys are the model answer fields backed by a statistical default
var narrativeKeys = []string{
	"summary", "salesTrends", "pricingInsights", "customerBehavior", "opportunities",
	"conclusion", "recommendations",
}

func narrativeDefaults(stats analysis.Result) map[string]any {
	return map[string]any{
		"summary":          stats.Insights.Summary,
		"salesTrends":      stats.Insights.SalesTrends,
		"pricingInsights":  stats.Insights.PricingInsights,
		"customerBehavior": stats.Insights.CustomerBehavior,
		"opportunities":    stats.Insights.Opportunities,
		"conclusion":       stats.Conclusion,
		"recommendations":  []string{},
	}
}

// generateNarrative returns nil once the retry budget is exhausted. Fields the model
// leaves out are taken from defaults.
func (s *InsightReportService) generateNarrative(ctx context.Context, logger *zerolog.Logger, payload reportPromptPayload, defaults map[string]any) *reportModelResponse {
	prompt := buildReportPrompt(payload)

	var resp reportModelResponse
	err := retry.DoWithLog(ctx, s.cfg.GenerationPolicy, "report_generation", func() error {
		raw, err := s.generator.GenerateText(ctx, prompt)
		if err != nil {
			return err
		}
		resp = reportModelResponse{}
		return utils.DecodeModelResponseDefaults(raw, narrativeKeys, defaults, &resp)
	}, func(attempt int, err error, next time.Duration) {
		logger.Debug().Err(err).Int("attempt", attempt).Dur("next_delay", next).Msg("report generation attempt failed")
	})
	if err != nil {
		logger.Warn().Err(err).Str("component", reportComponent).Msg("using statistics-only report content")
		observability.RecordFallback(ctx, s.metrics, reportComponent, "generation_exhausted")
		return nil
	}
	return &resp
}

// mergeReport fills report from the statistics, preferring non-empty model narrative.
// Chart figures always come from the statistics.
func mergeReport(report *entities.InsightReport, stats analysis.Result, ai *reportModelResponse) {
	insights := stats.Insights
	conclusion := stats.Conclusion
	recommendations := stats.Recommendations
	reasons := stats.ReasonDistribution
	books := make([]entities.BookAnalysis, len(stats.BookAnalysis))
	copy(books, stats.BookAnalysis)

	if ai != nil {
		insights.Summary = preferNonEmpty(ai.Summary, insights.Summary)
		insights.SalesTrends = preferNonEmpty(ai.SalesTrends, insights.SalesTrends)
		insights.PricingInsights = preferNonEmpty(ai.PricingInsights, insights.PricingInsights)
		insights.CustomerBehavior = preferNonEmpty(ai.CustomerBehavior, insights.CustomerBehavior)
		insights.Opportunities = preferNonEmpty(ai.Opportunities, insights.Opportunities)
		conclusion = preferNonEmpty(ai.Conclusion, conclusion)
		recommendations = append(append([]string{}, ai.Recommendations...), stats.Recommendations...)

		for i := range books {
			if r := strings.TrimSpace(ai.BookReasons[books[i].BookID]); r != "" {
				books[i].SuccessReason = r
			}
		}
		if d := modelReasonDistribution(ai); len(d) > 0 {
			reasons = d
		}
	}

	if reasons == nil {
		reasons = []entities.ReasonShare{}
	}

	report.AIInsights = insights
	report.Conclusion = conclusion
	report.Recommendations = dedupeStrings(recommendations)
	report.BookAnalysis = books
	report.ChartData = entities.ChartData{
		TopBooks:           stats.TopBooks,
		ReasonDistribution: reasons,
		Trends:             stats.Trends,
		Correlations: entities.CorrelationSummary{
			PriceSales:   stats.Correlation,
			RatingImpact: stats.RatingImpact,
		},
	}
}

func modelReasonDistribution(ai *reportModelResponse) []entities.ReasonShare {
	total := 0.0
	for _, r := range ai.ReasonDistribution {
		if strings.TrimSpace(r.Reason) == "" || r.Count <= 0 {
			return nil
		}
		total += r.Count
	}
	if total == 0 {
		return nil
	}

	out := make([]entities.ReasonShare, 0, len(ai.ReasonDistribution))
	for _, r := range ai.ReasonDistribution {
		out = append(out, entities.ReasonShare{
			Reason:  strings.TrimSpace(r.Reason),
			Count:   int(r.Count),
			Percent: math.Round(r.Count/total*1000) / 10,
		})
	}
	return out
}

func preferNonEmpty(primary, fallback string) string {
	if p := strings.TrimSpace(primary); p != "" {
		return p
	}
	return fallback
}

// dedupeStrings keeps the first occurrence, comparing case-insensitively
func dedupeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// reloadForFailure loads a report whose first load failed so it can still be marked failed.
// It returns nil when the report is gone, is no longer generating or cannot be read; the
// janitor then owns it.
func (s *InsightReportService) reloadForFailure(ctx context.Context, reportID string) *entities.InsightReport {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("report_id", reportID).Msg("report left for the stale janitor")
		return nil
	}
	if report.Status != entities.ReportStatusGenerating {
		return nil
	}
	return report
}

func (s *InsightReportService) finalizeFailed(ctx context.Context, report *entities.InsightReport, cause error) {
	// the caller's context may already be cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	now := s.now()
	report.Status = entities.ReportStatusFailed
	report.FailureReason = GenericReportFailure
	report.AIInsights = entities.AIInsights{Summary: GenericReportFailure}
	report.UpdatedAt = now
	report.CompletedAt = &now

	updated, err := s.reports.UpdateIfGenerating(ctx, report)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).AnErr("cause", cause).Str("report_id", report.ID).Msg("could not mark report as failed")
		return
	}
	if !updated {
		return
	}
	observability.RecordReportFinalized(ctx, s.metrics, string(entities.ReportStatusFailed))
	s.publish(ctx, report, entities.ReportEventFailed, GenericReportFailure)
}

// CleanupStuckReports fails every generating report older than staleAfter and returns how
// many were transitioned. Running it again is a no-op.
func (s *InsightReportService) CleanupStuckReports(ctx context.Context, staleAfter time.Duration) (int, error) {
	if staleAfter <= 0 {
		return 0, apperrors.NewValidationError("stale-after must be positive")
	}
	cutoff := s.now().Add(-staleAfter)

	failed, err := s.reports.FailStaleGenerating(ctx, cutoff, StaleReportFailure)
	if err != nil {
		return 0, err
	}

	logger := observability.LoggerFromContext(ctx)
	for _, r := range failed {
		logger.Warn().Str("component", reportComponent).Str("report_id", r.ID).Time("created_at", r.CreatedAt).Msg("stale generating report marked failed")
		observability.RecordReportFinalized(ctx, s.metrics, string(entities.ReportStatusFailed))
		s.publish(ctx, r, entities.ReportEventStale, StaleReportFailure)
	}
	return len(failed), nil
}

// ReportProgress estimates the progress of a report. Generating reports never exceed 90%.
func (s *InsightReportService) ReportProgress(ctx context.Context, reportID string) (*entities.ReportProgress, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return s.progressOf(report), nil
}

func (s *InsightReportService) progressOf(report *entities.InsightReport) *entities.ReportProgress {
	p := &entities.ReportProgress{ReportID: report.ID, Status: report.Status}

	switch report.Status {
	case entities.ReportStatusCompleted:
		p.ProgressPercent = 100
		p.Message = "Report is ready."
	case entities.ReportStatusFailed:
		p.ProgressPercent = 0
		p.Message = preferNonEmpty(report.FailureReason, GenericReportFailure)
	default:
		elapsed := s.now().Sub(report.CreatedAt)
		p.ProgressPercent = GeneratingProgress(elapsed, s.cfg.EstimatedDuration)
		switch {
		case p.ProgressPercent < 30:
			p.Message = "Collecting sales data..."
		case p.ProgressPercent < 60:
			p.Message = "Analyzing sales patterns..."
		default:
			p.Message = "Writing insights..."
		}
	}
	return p
}

// GeneratingProgress maps elapsed time onto [5, 90], linearly over the expected duration
func GeneratingProgress(elapsed, expected time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	if expected <= 0 {
		return maxGeneratingProgress
	}
	pct := 5 + int(float64(elapsed)/float64(expected)*float64(maxGeneratingProgress-5))
	if pct > maxGeneratingProgress {
		return maxGeneratingProgress
	}
	return pct
}

// GetReport returns a report of ownerID
func (s *InsightReportService) GetReport(ctx context.Context, ownerID, reportID string) (*entities.InsightReport, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && report.OwnerID != ownerID {
		return nil, apperrors.NewNotFoundError("report not found")
	}
	return report, nil
}

// ListReports returns the reports of ownerID, newest first
func (s *InsightReportService) ListReports(ctx context.Context, ownerID string, limit, offset int) ([]*entities.InsightReport, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.NewValidationError("owner id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.reports.ListByOwner(ctx, ownerID, limit, offset)
}

func (s *InsightReportService) publish(ctx context.Context, report *entities.InsightReport, eventType entities.ReportEventType, message string) {
	if s.events == nil {
		return
	}
	ev := entities.NewReportEvent(report, eventType, message)
	for _, channel := range []string{providers.GetReportChannel(report.ID), providers.GetOwnerChannel(report.OwnerID)} {
		if err := s.events.Publish(ctx, channel, ev); err != nil {
			observability.LoggerFromContext(ctx).Debug().Err(err).Str("channel", channel).Msg("failed to publish report event")
		}
	}
}

// IsReportInProgress extracts the blocking report id from an error returned by Start
func IsReportInProgress(err error) (string, bool) {
	var inProgress *ReportInProgressError
	if errors.As(err, &inProgress) {
		return inProgress.ExistingReportID, true
	}
	return "", false
}
