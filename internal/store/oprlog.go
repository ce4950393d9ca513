package store

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/talkincode/thriftmart/internal/domain"
	"gorm.io/gorm"
)

// GormOprLogStore persists operation log entries with snowflake ids.
type GormOprLogStore struct {
	db   *gorm.DB
	node *snowflake.Node
}

// NewGormOprLogStore creates a new GORM-based operation log store
func NewGormOprLogStore(db *gorm.DB, node *snowflake.Node) *GormOprLogStore {
	return &GormOprLogStore{db: db, node: node}
}

func (r *GormOprLogStore) Create(ctx context.Context, log *domain.OprLog) error {
	if log.ID == 0 {
		log.ID = r.node.Generate().Int64()
	}
	if log.OptTime.IsZero() {
		log.OptTime = time.Now()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// List returns the most recent entries first.
func (r *GormOprLogStore) List(ctx context.Context, limit int) ([]domain.OprLog, error) {
	var logs []domain.OprLog
	err := r.db.WithContext(ctx).
		Order("opt_time DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// DeleteBefore removes entries older than cutoff and returns how many went.
func (r *GormOprLogStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("opt_time < ?", cutoff).
		Delete(&domain.OprLog{})
	return res.RowsAffected, res.Error
}
