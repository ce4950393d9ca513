package app

import (
	"github.com/robfig/cron/v3"
	"github.com/talkincode/thriftmart/config"
	"github.com/talkincode/thriftmart/internal/events"
	"github.com/talkincode/thriftmart/internal/inventory"
	"github.com/talkincode/thriftmart/internal/store"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// EngineProvider provides the inventory engine and its read side
type EngineProvider interface {
	Engine() *inventory.Engine
	Queries() *inventory.Queries
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	EngineProvider

	OprLog() *store.GormOprLogStore
	Publisher() events.Publisher

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	Release()
}
