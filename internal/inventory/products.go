package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/talkincode/thriftmart/internal/domain"
	"github.com/talkincode/thriftmart/internal/store"
	"go.uber.org/zap"
)

// ProductUpdate carries the fields to change. A nil field is left as is;
// a non-nil zero is a real update to zero.
type ProductUpdate struct {
	Price    *decimal.Decimal
	Quantity *int
}

func (u ProductUpdate) empty() bool {
	return u.Price == nil && u.Quantity == nil
}

// maxPrice is the smallest value a decimal(12,2) price column cannot hold.
var maxPrice = decimal.New(1, 10)

func checkPrice(price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return newError(CodeInvalidArgument, "price must be a non-negative number")
	case !price.Equal(price.Truncate(2)):
		return newError(CodeInvalidArgument, "price must have at most two decimal places")
	case price.GreaterThanOrEqual(maxPrice):
		return newError(CodeInvalidArgument, "price must be less than %s", maxPrice.String())
	}
	return nil
}

func (e *Engine) CreateProduct(ctx context.Context, name string, price decimal.Decimal, quantity int) (*domain.Product, error) {
	name = domain.NormalizeName(name)
	if name == "" {
		return nil, newError(CodeInvalidArgument, "product name is required")
	}
	if err := checkPrice(price); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, newError(CodeInvalidArgument, "quantity must be a non-negative integer")
	}

	var created *domain.Product
	err := e.run(ctx, "create product", func(tx store.Tx) error {
		created = nil
		if _, err := tx.Catalog().Get(ctx, name); err == nil {
			return newError(CodeAlreadyExists, "product %s already exists", name)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		p := &domain.Product{Name: name, Price: price, Quantity: quantity}
		if err := tx.Catalog().Create(ctx, p); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return newError(CodeAlreadyExists, "product %s already exists", name)
			}
			return fmt.Errorf("create product %s: %w", name, err)
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("product created",
		zap.String("namespace", "inventory"),
		zap.String("name", name),
		zap.String("price", price.String()),
		zap.Int("quantity", quantity),
	)
	return created, nil
}

func (e *Engine) GetProduct(ctx context.Context, name string) (*domain.Product, error) {
	name = domain.NormalizeName(name)
	p, err := e.uow.Reader().Catalog().Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(CodeNotFound, "%s is not a valid product", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", name, err)
	}
	return p, nil
}

func (e *Engine) UpdateProduct(ctx context.Context, name string, upd ProductUpdate) (*domain.Product, error) {
	name = domain.NormalizeName(name)
	if upd.Price != nil {
		if err := checkPrice(*upd.Price); err != nil {
			return nil, err
		}
	}
	if upd.Quantity != nil && *upd.Quantity < 0 {
		return nil, newError(CodeInvalidArgument, "quantity must be a non-negative integer")
	}

	var updated *domain.Product
	err := e.run(ctx, "update product", func(tx store.Tx) error {
		updated = nil
		p, err := tx.Catalog().GetForUpdate(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return newError(CodeNotFound, "product %s not found", name)
		}
		if err != nil {
			return fmt.Errorf("lock product %s: %w", name, err)
		}
		if upd.empty() {
			updated = p
			return nil
		}
		updated, err = tx.Catalog().Update(ctx, name, upd.Price, upd.Quantity)
		if err != nil {
			return fmt.Errorf("update product %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("product updated",
		zap.String("namespace", "inventory"),
		zap.String("name", name),
		zap.String("price", updated.Price.String()),
		zap.Int("quantity", updated.Quantity),
	)
	return updated, nil
}

// DeleteProduct removes a product no order line refers to. Lines of
// processed orders count as references too.
func (e *Engine) DeleteProduct(ctx context.Context, name string) error {
	name = domain.NormalizeName(name)
	err := e.run(ctx, "delete product", func(tx store.Tx) error {
		if _, err := tx.Catalog().GetForUpdate(ctx, name); errors.Is(err, store.ErrNotFound) {
			return newError(CodeNotFound, "product %s not found", name)
		} else if err != nil {
			return fmt.Errorf("lock product %s: %w", name, err)
		}
		referenced, err := tx.Catalog().IsReferenced(ctx, name)
		if err != nil {
			return fmt.Errorf("check references to %s: %w", name, err)
		}
		if referenced {
			return newError(CodeReferentialIntegrity, "cannot remove product %s since it has been ordered by customers", name)
		}
		switch err := tx.Catalog().Delete(ctx, name); {
		case errors.Is(err, store.ErrReferenced):
			return newError(CodeReferentialIntegrity, "cannot remove product %s since it has been ordered by customers", name)
		case errors.Is(err, store.ErrNotFound):
			return newError(CodeNotFound, "product %s not found", name)
		case err != nil:
			return fmt.Errorf("delete product %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	zap.L().Info("product deleted", zap.String("namespace", "inventory"), zap.String("name", name))
	return nil
}
