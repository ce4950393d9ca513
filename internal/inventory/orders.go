package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/talkincode/thriftmart/internal/domain"
	"github.com/talkincode/thriftmart/internal/store"
	"go.uber.org/zap"
)

// LineRequest asks for quantity units of a product in an order.
type LineRequest struct {
	Product  string
	Quantity int
}

// normalizeLines folds product names and rejects a product named twice.
func normalizeLines(lines []LineRequest) ([]LineRequest, error) {
	out := make([]LineRequest, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		name := domain.NormalizeName(l.Product)
		if name == "" {
			return nil, newError(CodeInvalidArgument, "product name is required for every line")
		}
		if seen[name] {
			return nil, newError(CodeInvalidArgument, "product %s is listed more than once", name)
		}
		seen[name] = true
		out = append(out, LineRequest{Product: name, Quantity: l.Quantity})
	}
	return out, nil
}

// lockProducts share-locks every requested product in name order, so two
// transactions never wait on each other's locks in opposite order. Missing
// products are absent from the result.
func lockProducts(ctx context.Context, tx store.Tx, lines []LineRequest) (map[string]*domain.Product, error) {
	names := make([]string, 0, len(lines))
	for _, l := range lines {
		names = append(names, l.Product)
	}
	sort.Strings(names)
	products := make(map[string]*domain.Product, len(names))
	for _, name := range names {
		p, err := tx.Catalog().GetForShare(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lock product %s: %w", name, err)
		}
		products[name] = p
	}
	return products, nil
}

// CreateOrder validates every line against the catalog and stores the order.
// Stock is checked but not reserved; it is only consumed by ProcessOrder.
func (e *Engine) CreateOrder(ctx context.Context, customerName, customerAddress string, lines []LineRequest) (*domain.OrderView, error) {
	customerName = strings.TrimSpace(customerName)
	customerAddress = strings.TrimSpace(customerAddress)
	if customerName == "" {
		return nil, newError(CodeInvalidArgument, "customer name is required")
	}
	if customerAddress == "" {
		return nil, newError(CodeInvalidArgument, "customer address is required")
	}
	lines, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}

	var view *domain.OrderView
	err = e.run(ctx, "create order", func(tx store.Tx) error {
		view = nil
		products, err := lockProducts(ctx, tx, lines)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if _, ok := products[l.Product]; !ok {
				return newError(CodeProductNotFound, "product %s is not in the store", l.Product)
			}
		}
		order := &domain.Order{
			CustomerName:    customerName,
			CustomerAddress: customerAddress,
			OrderDate:       e.now(),
		}
		for _, l := range lines {
			if l.Quantity <= 0 {
				return newError(CodeInvalidQuantity, "invalid quantity for %s, only positive integers accepted", l.Product)
			}
			if l.Quantity > products[l.Product].Quantity {
				return newError(CodeInsufficientInventory, "insufficient inventory for product: %s", l.Product)
			}
			order.Lines = append(order.Lines, domain.OrderLine{ProductName: l.Product, Quantity: l.Quantity})
		}
		id, err := tx.Orders().Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		stored, err := tx.Orders().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("reload order %d: %w", id, err)
		}
		view = stored.View()
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("order created",
		zap.String("namespace", "inventory"),
		zap.Int64("order_id", view.ID),
		zap.Int("lines", len(view.Products)),
		zap.String("price", view.Price.String()),
	)
	return view, nil
}

func (e *Engine) GetOrder(ctx context.Context, id int64) (*domain.OrderView, error) {
	o, err := e.uow.Reader().Orders().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(CodeNotFound, "order with id %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return o.View(), nil
}

// ProcessOrder consumes stock for every line and marks the order completed.
// Each line consumes min(requested, in stock); a line is cut down to what it
// consumed and dropped when nothing was consumed. Processing a completed
// order returns it unchanged.
func (e *Engine) ProcessOrder(ctx context.Context, id int64) (*domain.OrderView, error) {
	var (
		view         *domain.OrderView
		transitioned bool
	)
	err := e.run(ctx, "process order", func(tx store.Tx) error {
		view, transitioned = nil, false
		order, err := tx.Orders().GetForUpdate(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return newError(CodeNotFound, "order with id %d does not exist", id)
		}
		if err != nil {
			return fmt.Errorf("lock order %d: %w", id, err)
		}
		if order.Completed {
			view = order.View()
			return nil
		}

		processedAt := e.now()
		if processedAt.Before(order.OrderDate) {
			processedAt = order.OrderDate
		}
		if err := tx.Orders().MarkProcessed(ctx, id, processedAt); err != nil {
			if errors.Is(err, store.ErrAlreadyProcessed) {
				// processed by someone else since our read
				return store.ErrStale
			}
			return fmt.Errorf("mark order %d processed: %w", id, err)
		}

		names := make([]string, 0, len(order.Lines))
		for _, line := range order.Lines {
			names = append(names, line.ProductName)
		}
		sort.Strings(names)
		stock := make(map[string]*domain.Product, len(names))
		for _, name := range names {
			p, err := tx.Catalog().GetForUpdate(ctx, name)
			if err != nil {
				return fmt.Errorf("lock product %s: %w", name, err)
			}
			stock[name] = p
		}

		kept := make([]domain.OrderLine, 0, len(order.Lines))
		reduced := false
		for _, line := range order.Lines {
			p := stock[line.ProductName]
			consumed := min(line.Quantity, p.Quantity)
			remaining := p.Quantity - consumed
			if remaining < 0 {
				remaining = 0
			}
			if remaining != p.Quantity {
				if err := tx.Catalog().SetQuantity(ctx, p.Name, p.Quantity, remaining); err != nil {
					return fmt.Errorf("consume %s: %w", p.Name, err)
				}
			}
			if consumed != line.Quantity {
				reduced = true
				zap.L().Warn("order line cut to available stock",
					zap.String("namespace", "inventory"),
					zap.Int64("order_id", id),
					zap.String("product", line.ProductName),
					zap.Int("requested", line.Quantity),
					zap.Int("consumed", consumed),
				)
			}
			if consumed > 0 {
				line.Quantity = consumed
				kept = append(kept, line)
			}
		}
		if reduced {
			if err := tx.Orders().ReplaceLines(ctx, id, kept); err != nil {
				return fmt.Errorf("rewrite lines of order %d: %w", id, err)
			}
		}

		stored, err := tx.Orders().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("reload order %d: %w", id, err)
		}
		view = stored.View()
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transitioned {
		zap.L().Info("order processed",
			zap.String("namespace", "inventory"),
			zap.Int64("order_id", id),
			zap.String("price", view.Price.String()),
		)
	}
	return view, nil
}

// DeleteOrder removes the order and its lines. Stock consumed by processing
// is not given back.
func (e *Engine) DeleteOrder(ctx context.Context, id int64) error {
	err := e.run(ctx, "delete order", func(tx store.Tx) error {
		if _, err := tx.Orders().GetForUpdate(ctx, id); errors.Is(err, store.ErrNotFound) {
			return newError(CodeNotFound, "order with id %d does not exist", id)
		} else if err != nil {
			return fmt.Errorf("lock order %d: %w", id, err)
		}
		if err := tx.Orders().Delete(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return newError(CodeNotFound, "order with id %d does not exist", id)
			}
			return fmt.Errorf("delete order %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	zap.L().Info("order deleted", zap.String("namespace", "inventory"), zap.Int64("order_id", id))
	return nil
}

// UpdateOrder applies requested quantities to a pending order: a positive
// quantity sets or adds the line, zero removes it (or does nothing when the
// line does not exist). Either every line applies or none does.
func (e *Engine) UpdateOrder(ctx context.Context, id int64, lines []LineRequest) (*domain.OrderView, error) {
	lines, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}

	var view *domain.OrderView
	err = e.run(ctx, "update order", func(tx store.Tx) error {
		view = nil
		order, err := tx.Orders().GetForUpdate(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return newError(CodeNotFound, "order with id %d does not exist", id)
		}
		if err != nil {
			return fmt.Errorf("lock order %d: %w", id, err)
		}
		if order.Completed {
			return newError(CodeAlreadyProcessed, "order %d was already processed and can no longer change", id)
		}

		products, err := lockProducts(ctx, tx, lines)
		if err != nil {
			return err
		}
		requested := make(map[string]int, len(lines))
		for _, l := range lines {
			p, ok := products[l.Product]
			if !ok {
				return newError(CodeProductNotFound, "order not updated, product %s is not in the database", l.Product)
			}
			if l.Quantity < 0 {
				return newError(CodeInvalidQuantity, "invalid quantity for %s, only non-negative integers accepted", l.Product)
			}
			if l.Quantity > p.Quantity {
				return newError(CodeInsufficientInventory, "insufficient inventory for product: %s", l.Product)
			}
			requested[l.Product] = l.Quantity
		}

		next := make([]domain.OrderLine, 0, len(order.Lines)+len(lines))
		for _, line := range order.Lines {
			qty, ok := requested[line.ProductName]
			switch {
			case !ok:
				next = append(next, line)
			case qty > 0:
				line.Quantity = qty
				next = append(next, line)
			}
		}
		for _, l := range lines {
			if l.Quantity > 0 && order.Line(l.Product) == nil {
				next = append(next, domain.OrderLine{OrderID: id, ProductName: l.Product, Quantity: l.Quantity})
			}
		}
		if err := tx.Orders().ReplaceLines(ctx, id, next); err != nil {
			return fmt.Errorf("replace lines of order %d: %w", id, err)
		}

		stored, err := tx.Orders().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("reload order %d: %w", id, err)
		}
		view = stored.View()
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("order updated",
		zap.String("namespace", "inventory"),
		zap.Int64("order_id", id),
		zap.Int("lines", len(view.Products)),
	)
	return view, nil
}
