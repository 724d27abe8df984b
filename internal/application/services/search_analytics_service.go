package services

import (
	"context"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/tasks"
)

const searchEventWriteTimeout = 5 * time.Second

type SearchAnalyticsService struct {
	repo   repositories.SearchAnalyticsRepository
	runner *tasks.Runner
}

func NewSearchAnalyticsService(repo repositories.SearchAnalyticsRepository, runner *tasks.Runner) *SearchAnalyticsService {
	return &SearchAnalyticsService{repo: repo, runner: runner}
}

// TrackSearch records the event in the background; the search request never waits on it
func (s *SearchAnalyticsService) TrackSearch(event *entities.SearchEvent) {
	if s == nil || event == nil {
		return
	}
	err := s.runner.Go("search_event", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, searchEventWriteTimeout)
		defer cancel()
		return s.repo.LogEvent(ctx, event)
	})
	if err != nil {
		observability.GetLogger().Debug().Err(err).Msg("search event dropped")
	}
}

func (s *SearchAnalyticsService) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	return s.repo.GetZeroResultQueries(ctx, limit)
}

func newSearchEvent(query string, result *entities.SearchResult, latency time.Duration) *entities.SearchEvent {
	event := &entities.SearchEvent{
		Query:       query,
		QueryType:   result.Classification.QueryType,
		Mode:        result.Mode,
		Fallback:    result.Classification.Fallback,
		ResultCount: len(result.Books),
		LatencyMs:   int(latency.Milliseconds()),
	}
	if c := result.Classification.Filters.CategoryID; c != nil {
		event.CategoryID = *c
	}
	return event
}
