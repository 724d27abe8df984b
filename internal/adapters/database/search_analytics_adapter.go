package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

const searchEventsTable = "search_events"

type SearchAnalyticsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

func NewSearchAnalyticsAdapter(client *postgres.Client) repositories.SearchAnalyticsRepository {
	return &SearchAnalyticsAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func (a *SearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query, args, err := a.db.Insert(searchEventsTable).Rows(goqu.Record{
		"id":           event.ID,
		"query":        event.Query,
		"query_type":   string(event.QueryType),
		"mode":         string(event.Mode),
		"category_id":  event.CategoryID,
		"fallback":     event.Fallback,
		"result_count": event.ResultCount,
		"latency_ms":   event.LatencyMs,
		"created_at":   event.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build search event insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to log search event", err)
	}
	return nil
}

// GetZeroResultQueries returns the most recent searches that found nothing
func (a *SearchAnalyticsAdapter) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := a.db.From(searchEventsTable).
		Select("id", "query", "query_type", "mode", "category_id", "fallback", "result_count", "latency_ms", "created_at").
		Where(goqu.C("result_count").Eq(0)).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build zero result query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result queries", err)
	}
	defer rows.Close()

	events := []*entities.SearchEvent{}
	for rows.Next() {
		e := &entities.SearchEvent{}
		var queryType, mode string
		if err := rows.Scan(&e.ID, &e.Query, &queryType, &mode, &e.CategoryID, &e.Fallback, &e.ResultCount, &e.LatencyMs, &e.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan search event", err)
		}
		e.QueryType = entities.QueryType(queryType)
		e.Mode = entities.SearchMode(mode)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read search events", err)
	}
	return events, nil
}
