package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/thriftmart/config"
	"github.com/talkincode/thriftmart/internal/domain"
	"github.com/talkincode/thriftmart/internal/events"
	"github.com/talkincode/thriftmart/internal/inventory"
	"github.com/talkincode/thriftmart/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

// snowflake node of this process, used for operation log ids
const defaultNodeID int64 = 1

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	engine    *inventory.Engine
	queries   *inventory.Queries
	oprlog    *store.GormOprLogStore
	publisher events.Publisher
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ EngineProvider    = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Engine() *inventory.Engine {
	return a.engine
}

func (a *Application) Queries() *inventory.Queries {
	return a.queries
}

func (a *Application) OprLog() *store.GormOprLogStore {
	return a.oprlog
}

func (a *Application) Publisher() events.Publisher {
	return a.publisher
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Init sets up logging, the database, the engine and background jobs.
func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	if err := initLogger(cfg); err != nil {
		return errors.Wrap(err, "init logger")
	}

	if a.gormDB == nil {
		db, err := getDatabase(cfg.Database, cfg.System.Workdir)
		if err != nil {
			return err
		}
		a.gormDB = db
		zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
	}

	if err := a.MigrateDB(false); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	if err := a.initServices(cfg); err != nil {
		return err
	}

	if cfg.System.SeedDemo {
		a.checkProducts(context.Background())
	}

	a.initJob()
	return nil
}

// initServices wires the stores, the engine and the event publisher over gormDB.
func (a *Application) initServices(cfg *config.AppConfig) error {
	node, err := snowflake.NewNode(defaultNodeID)
	if err != nil {
		return errors.Wrap(err, "init snowflake node")
	}
	uow := store.NewGormUnitOfWork(a.gormDB)
	a.engine = inventory.NewEngine(uow,
		inventory.WithMaxRetries(cfg.Engine.MaxRetries),
		inventory.WithRetryBackoff(time.Duration(cfg.Engine.RetryBackoffMs)*time.Millisecond),
	)
	a.queries = inventory.NewQueries(uow)
	a.oprlog = store.NewGormOprLogStore(a.gormDB, node)

	if cfg.Kafka.Enabled {
		a.publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
		zap.L().Info("order events enabled",
			zap.String("namespace", "events"),
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic_prefix", cfg.Kafka.TopicPrefix),
		)
	} else {
		a.publisher = events.NopPublisher{}
	}
	return nil
}

func initLogger(cfg *config.AppConfig) error {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		filename := cfg.Logger.Filename
		if filename == "" {
			filename = cfg.GetLogDir() + "/thriftmart.log"
		}
		lumberJackLogger := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			return err
		}
	}

	zap.ReplaceGlobals(logger)
	return nil
}

func getDatabase(cfg config.DBConfig, workdir string) (*gorm.DB, error) {
	if cfg.Type == "" {
		cfg.Type = "sqlite"
	}
	db, err := store.Open(cfg, workdir)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s database", cfg.Type)
	}
	return db, nil
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if track {
		return a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...)
	}
	return store.Migrate(a.gormDB)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

// InitDb drops every table and migrates from scratch.
func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			zap.L().Warn("failed to close event publisher", zap.Error(err))
		}
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}
