package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/thriftmart/config"
	"github.com/talkincode/thriftmart/internal/domain"
	"github.com/talkincode/thriftmart/internal/events"
	"github.com/talkincode/thriftmart/internal/inventory"
)

func newTestApp(t *testing.T, mutate func(cfg *config.AppConfig)) *Application {
	t.Helper()
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()
	cfg.Logger.Mode = "production"
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Prepare())

	a := NewApplication(cfg)
	require.NoError(t, a.Init(cfg))
	t.Cleanup(a.Release)
	return a
}

func TestInit_WiresEngine(t *testing.T) {
	a := newTestApp(t, nil)
	require.NotNil(t, a.DB())
	require.NotNil(t, a.Engine())
	require.NotNil(t, a.Queries())
	require.NotNil(t, a.Scheduler())
	assert.IsType(t, events.NopPublisher{}, a.Publisher())
	assert.Len(t, a.Scheduler().Entries(), 2)

	ctx := context.Background()
	products, err := a.Queries().ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products, "demo data is off by default")
}

func TestInit_SeedDemo(t *testing.T) {
	a := newTestApp(t, func(cfg *config.AppConfig) { cfg.System.SeedDemo = true })
	ctx := context.Background()

	products, err := a.Queries().ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, len(defaultProducts))

	// seeding again creates nothing
	assert.Equal(t, 0, a.SeedDemo(ctx))

	out, err := a.Queries().ListOutOfStock(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "paper towels", out[0].Name)
}

func TestInit_KafkaPublisherWhenEnabled(t *testing.T) {
	a := newTestApp(t, func(cfg *config.AppConfig) {
		cfg.Kafka.Enabled = true
		cfg.Kafka.Brokers = []string{"127.0.0.1:9092"}
	})
	assert.IsType(t, &events.KafkaPublisher{}, a.Publisher())
}

func TestInit_NoStockReportWhenCronEmpty(t *testing.T) {
	a := newTestApp(t, func(cfg *config.AppConfig) { cfg.Jobs.StockReportCron = "" })
	assert.Len(t, a.Scheduler().Entries(), 1)
}

func TestSchedClearOprLogTask(t *testing.T) {
	a := newTestApp(t, func(cfg *config.AppConfig) { cfg.Jobs.OprlogRetentionDays = 30 })
	ctx := context.Background()

	require.NoError(t, a.OprLog().Create(ctx, &domain.OprLog{OptAction: "old", OptTime: time.Now().AddDate(0, 0, -31)}))
	require.NoError(t, a.OprLog().Create(ctx, &domain.OprLog{OptAction: "new", OptTime: time.Now()}))

	a.SchedClearOprLogTask()

	logs, err := a.OprLog().List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "new", logs[0].OptAction)
}

func TestSchedStockReportTask(t *testing.T) {
	a := newTestApp(t, func(cfg *config.AppConfig) { cfg.System.SeedDemo = true })
	assert.NotPanics(t, a.SchedStockReportTask)
}

func TestInitDb_DropsData(t *testing.T) {
	a := newTestApp(t, func(cfg *config.AppConfig) { cfg.System.SeedDemo = true })
	ctx := context.Background()

	a.InitDb()
	products, err := a.Queries().ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)

	_, err = a.Engine().GetProduct(ctx, "apple")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}
