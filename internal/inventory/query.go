package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/talkincode/thriftmart/internal/domain"
	"github.com/talkincode/thriftmart/internal/store"
)

// Queries are read-only views over committed state. They never mutate and
// never need a transaction.
type Queries struct {
	uow store.UnitOfWork
}

func NewQueries(uow store.UnitOfWork) *Queries {
	return &Queries{uow: uow}
}

// ListProducts returns the whole catalog sorted by name.
func (q *Queries) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := q.uow.Reader().Catalog().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (q *Queries) ListOutOfStock(ctx context.Context) ([]domain.Product, error) {
	products, err := q.uow.Reader().Catalog().ListOutOfStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list out of stock products: %w", err)
	}
	return products, nil
}

// ListPending returns orders not yet processed, oldest first.
func (q *Queries) ListPending(ctx context.Context) ([]domain.OrderView, error) {
	orders, err := q.uow.Reader().Orders().ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	return views(orders), nil
}

// ListProcessed returns completed orders by processing date.
func (q *Queries) ListProcessed(ctx context.Context) ([]domain.OrderView, error) {
	orders, err := q.uow.Reader().Orders().ListProcessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processed orders: %w", err)
	}
	return views(orders), nil
}

// SearchOrdersByCustomer matches customer names containing fragment,
// ignoring case.
func (q *Queries) SearchOrdersByCustomer(ctx context.Context, fragment string) ([]domain.OrderView, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, newError(CodeInvalidArgument, "customer name fragment is required")
	}
	orders, err := q.uow.Reader().Orders().SearchByCustomer(ctx, fragment)
	if err != nil {
		return nil, fmt.Errorf("search orders by customer: %w", err)
	}
	return views(orders), nil
}

func views(orders []domain.Order) []domain.OrderView {
	out := make([]domain.OrderView, 0, len(orders))
	for i := range orders {
		out = append(out, *orders[i].View())
	}
	return out
}
