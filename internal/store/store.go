package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/talkincode/thriftmart/config"
	"github.com/talkincode/thriftmart/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("record already exists")
	ErrReferenced       = errors.New("record is referenced")
	ErrAlreadyProcessed = errors.New("order already processed")
	// ErrStale is returned when a guarded write finds the row changed since it
	// was read. It is transient: the surrounding transaction should be retried.
	ErrStale = errors.New("stale write")
)

// CatalogStore is the durable product name -> (price, quantity) mapping.
// All names are expected to be normalized by the caller.
type CatalogStore interface {
	Get(ctx context.Context, name string) (*domain.Product, error)

	// GetForUpdate reads the product and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, name string) (*domain.Product, error)

	// GetForShare reads the product and takes a shared row lock, so it cannot
	// be deleted or restocked underneath the caller.
	GetForShare(ctx context.Context, name string) (*domain.Product, error)

	Create(ctx context.Context, p *domain.Product) error

	// Update applies the non-nil fields.
	Update(ctx context.Context, name string, price *decimal.Decimal, quantity *int) (*domain.Product, error)

	// SetQuantity moves stock from expected to quantity, failing with ErrStale
	// when the stored value is no longer expected.
	SetQuantity(ctx context.Context, name string, expected, quantity int) error

	Delete(ctx context.Context, name string) error

	// IsReferenced reports whether any order line names the product.
	IsReferenced(ctx context.Context, name string) (bool, error)

	List(ctx context.Context) ([]domain.Product, error)
	ListOutOfStock(ctx context.Context) ([]domain.Product, error)
}

// OrderStore is the durable order id -> order + lines mapping.
// Orders are always returned with Lines (and Lines.Product) loaded,
// lines in insertion order.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Order, error)

	// Delete removes the lines, then the order.
	Delete(ctx context.Context, id int64) error

	// ReplaceLines makes the stored lines equal to lines: missing ones are
	// removed, changed quantities updated, new ones appended.
	ReplaceLines(ctx context.Context, id int64, lines []domain.OrderLine) error

	MarkProcessed(ctx context.Context, id int64, at time.Time) error

	ListPending(ctx context.Context) ([]domain.Order, error)
	ListProcessed(ctx context.Context) ([]domain.Order, error)
	SearchByCustomer(ctx context.Context, fragment string) ([]domain.Order, error)
}

// Tx is a transaction-scoped view of both stores.
type Tx interface {
	Catalog() CatalogStore
	Orders() OrderStore
}

// UnitOfWork runs fn inside one transaction; fn's error rolls everything back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Tx) error) error

	// Reader returns stores over committed state, outside any transaction.
	Reader() Tx
}

// IsTransient reports whether err is a write conflict worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStale) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"SQLSTATE 40001", // serialization_failure
		"SQLSTATE 40P01", // deadlock_detected
		"database is locked",
		"database table is locked",
		"SQLITE_BUSY",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Open connects to the configured database. A relative sqlite path is
// resolved under workdir/data.
func Open(cfg config.DBConfig, workdir string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if cfg.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
	case "sqlite":
		file := cfg.Name
		if !filepath.IsAbs(file) && workdir != "" {
			file = filepath.Join(workdir, "data", file)
		}
		dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", file)
		db, err = gorm.Open(sqlite.Open(dsn), gcfg)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.Type == "sqlite" {
		// SQLite only supports one writer at a time
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		if cfg.MaxConn > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxConn)
		}
		if cfg.IdleConn > 0 {
			sqlDB.SetMaxIdleConns(cfg.IdleConn)
		}
	}
	return db, nil
}

// Migrate creates or updates every table in domain.Tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(domain.Tables...)
}
