package store

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/talkincode/thriftmart/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCatalogStore is the GORM implementation of CatalogStore
type GormCatalogStore struct {
	db *gorm.DB
}

// NewGormCatalogStore creates a new GORM-based catalog store
func NewGormCatalogStore(db *gorm.DB) *GormCatalogStore {
	return &GormCatalogStore{db: db}
}

func (r *GormCatalogStore) Get(ctx context.Context, name string) (*domain.Product, error) {
	return r.first(r.db.WithContext(ctx), name)
}

func (r *GormCatalogStore) GetForUpdate(ctx context.Context, name string) (*domain.Product, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), name)
}

func (r *GormCatalogStore) GetForShare(ctx context.Context, name string) (*domain.Product, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}), name)
}

func (r *GormCatalogStore) first(db *gorm.DB, name string) (*domain.Product, error) {
	var p domain.Product
	err := db.Where("name = ?", name).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormCatalogStore) Create(ctx context.Context, p *domain.Product) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func (r *GormCatalogStore) Update(ctx context.Context, name string, price *decimal.Decimal, quantity *int) (*domain.Product, error) {
	updates := map[string]interface{}{}
	if price != nil {
		updates["price"] = *price
	}
	if quantity != nil {
		updates["quantity"] = *quantity
	}
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).
			Model(&domain.Product{}).
			Where("name = ?", name).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.Get(ctx, name)
}

func (r *GormCatalogStore) SetQuantity(ctx context.Context, name string, expected, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("name = ? AND quantity = ?", name, expected).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *GormCatalogStore) Delete(ctx context.Context, name string) error {
	res := r.db.WithContext(ctx).Where("name = ?", name).Delete(&domain.Product{})
	if res.Error != nil {
		if isForeignKeyViolation(res.Error) {
			return ErrReferenced
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormCatalogStore) IsReferenced(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.OrderLine{}).
		Where("product_name = ?", name).
		Count(&count).Error
	return count > 0, err
}

func (r *GormCatalogStore) List(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *GormCatalogStore) ListOutOfStock(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Where("quantity = ?", 0).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") || strings.Contains(msg, "SQLSTATE 23503")
}
