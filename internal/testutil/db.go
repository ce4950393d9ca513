// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/talkincode/thriftmart/config"
	"github.com/talkincode/thriftmart/internal/store"
	"gorm.io/gorm"
)

// OpenDB returns a migrated sqlite database in a per-test directory.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := store.Open(config.DBConfig{Type: "sqlite", Name: filepath.Join(t.TempDir(), "thriftmart.db")}, "")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
