package repositories

import (
	"context"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// SoldOrderStatuses are the order statuses that count as a sale.
var SoldOrderStatuses = []string{"confirmed", "shipping", "delivered", "completed"}

// SalesWindow is a half-open time interval [Start, End).
type SalesWindow struct {
	Start time.Time
	End   time.Time
}

// OrderRepository aggregates order history
type OrderRepository interface {
	// AggregateSales sums sold quantities and revenue per book for orders created in the
	// window whose status is in statuses, ordered by sales descending. limit <= 0 means no limit.
	AggregateSales(ctx context.Context, window SalesWindow, statuses []string, limit int) ([]entities.SalesFact, error)
}
