package store

import (
	"context"

	"gorm.io/gorm"
)

type gormTx struct {
	catalog *GormCatalogStore
	orders  *GormOrderStore
}

func newGormTx(db *gorm.DB) *gormTx {
	return &gormTx{
		catalog: NewGormCatalogStore(db),
		orders:  NewGormOrderStore(db),
	}
}

func (t *gormTx) Catalog() CatalogStore { return t.catalog }

func (t *gormTx) Orders() OrderStore { return t.orders }

// GormUnitOfWork runs store operations inside gorm transactions.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a unit of work over db
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

func (u *GormUnitOfWork) Do(ctx context.Context, fn func(tx Tx) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newGormTx(tx))
	})
}

func (u *GormUnitOfWork) Reader() Tx {
	return newGormTx(u.db)
}
