package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

// OrderAdapter implements OrderRepository
type OrderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewOrderAdapter creates a new order adapter
func NewOrderAdapter(client *postgres.Client) repositories.OrderRepository {
	return &OrderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// AggregateSales sums sold quantity and revenue per book over [window.Start, window.End)
func (a *OrderAdapter) AggregateSales(ctx context.Context, window repositories.SalesWindow, statuses []string, limit int) ([]entities.SalesFact, error) {
	if len(statuses) == 0 {
		statuses = repositories.SoldOrderStatuses
	}

	ds := a.db.From(goqu.T("order_items").As("oi")).
		Join(goqu.T("orders").As("o"), goqu.On(goqu.I("o.id").Eq(goqu.I("oi.order_id")))).
		Select(
			goqu.I("oi.book_id"),
			goqu.L("COALESCE(SUM(oi.quantity), 0)").As("sales_count"),
			goqu.L("COALESCE(SUM(oi.quantity * oi.unit_price), 0)").As("revenue"),
		).
		Where(
			goqu.I("o.status").In(statuses),
			goqu.I("o.created_at").Gte(window.Start),
			goqu.I("o.created_at").Lt(window.End),
		).
		GroupBy(goqu.I("oi.book_id")).
		Order(goqu.I("sales_count").Desc(), goqu.I("oi.book_id").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate sales", err)
	}
	defer rows.Close()

	facts := []entities.SalesFact{}
	for rows.Next() {
		var f entities.SalesFact
		if err := rows.Scan(&f.BookID, &f.SalesCount, &f.Revenue); err != nil {
			return nil, apperrors.NewInternalError("failed to scan sales aggregate", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate sales aggregates", err)
	}
	return facts, nil
}
