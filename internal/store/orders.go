package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/talkincode/thriftmart/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderStore is the GORM implementation of OrderStore
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore creates a new GORM-based order store
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// withLines preloads lines in insertion order together with their products.
func withLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_lines.id ASC")
		}).
		Preload("Lines.Product")
}

func (r *GormOrderStore) Create(ctx context.Context, order *domain.Order) (int64, error) {
	lines := order.Lines
	order.Lines = nil
	order.CustomerKey = domain.Fold(order.CustomerName)
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		order.Lines = lines
		return 0, err
	}
	for i := range lines {
		lines[i].ID = 0
		lines[i].OrderID = order.ID
	}
	if len(lines) > 0 {
		if err := db.Omit(clause.Associations).Create(&lines).Error; err != nil {
			order.Lines = lines
			return 0, err
		}
	}
	order.Lines = lines
	return order.ID, nil
}

func (r *GormOrderStore) Get(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := withLines(r.db.WithContext(ctx)).First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderStore) GetForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderStore) loadLines(ctx context.Context, o *domain.Order) error {
	var lines []domain.OrderLine
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("order_id = ?", o.ID).
		Order("id ASC").
		Find(&lines).Error
	if err != nil {
		return err
	}
	o.Lines = lines
	return nil
}

func (r *GormOrderStore) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&domain.OrderLine{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&domain.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormOrderStore) ReplaceLines(ctx context.Context, id int64, lines []domain.OrderLine) error {
	var exists int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&domain.Order{}).Where("id = ?", id).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	var current []domain.OrderLine
	if err := db.Where("order_id = ?", id).Order("id ASC").Find(&current).Error; err != nil {
		return err
	}
	wanted := make(map[string]int, len(lines))
	for _, l := range lines {
		wanted[l.ProductName] = l.Quantity
	}
	have := make(map[string]bool, len(current))
	for _, l := range current {
		have[l.ProductName] = true
		qty, keep := wanted[l.ProductName]
		switch {
		case !keep:
			if err := db.Where("id = ?", l.ID).Delete(&domain.OrderLine{}).Error; err != nil {
				return err
			}
		case qty != l.Quantity:
			if err := db.Model(&domain.OrderLine{}).Where("id = ?", l.ID).Update("quantity", qty).Error; err != nil {
				return err
			}
		}
	}
	for _, l := range lines {
		if have[l.ProductName] {
			continue
		}
		line := domain.OrderLine{OrderID: id, ProductName: l.ProductName, Quantity: l.Quantity}
		if err := db.Omit(clause.Associations).Create(&line).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormOrderStore) MarkProcessed(ctx context.Context, id int64, at time.Time) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&domain.Order{}).
		Where("id = ? AND completed = ?", id, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"process_date": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := db.Model(&domain.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrAlreadyProcessed
}

func (r *GormOrderStore) ListPending(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := withLines(r.db.WithContext(ctx)).
		Where("completed = ?", false).
		Order("order_date ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *GormOrderStore) ListProcessed(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := withLines(r.db.WithContext(ctx)).
		Where("completed = ?", true).
		Order("process_date ASC, order_date ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *GormOrderStore) SearchByCustomer(ctx context.Context, fragment string) ([]domain.Order, error) {
	// customer_key holds the folded name, so matching does not depend on
	// how the database lower-cases non-ASCII text
	pattern := "%" + escapeLike(domain.Fold(fragment)) + "%"
	var orders []domain.Order
	err := withLines(r.db.WithContext(ctx)).
		Where(`customer_key LIKE ? ESCAPE '\'`, pattern).
		Order("customer_name ASC, order_date ASC, id ASC").Find(&orders).Error
	return orders, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
