package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@daily", a.SchedClearOprLogTask)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	if spec := a.appConfig.Jobs.StockReportCron; spec != "" {
		_, err = a.sched.AddFunc(spec, a.SchedStockReportTask)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	a.sched.Start()
}

// SchedClearOprLogTask purges operation log entries past the retention period.
func (a *Application) SchedClearOprLogTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	days := a.appConfig.Jobs.OprlogRetentionDays
	if days <= 0 {
		days = 365
	}
	cutoff := time.Now().Add(-time.Hour * 24 * time.Duration(days))
	n, err := a.oprlog.DeleteBefore(context.Background(), cutoff)
	if err != nil {
		zap.L().Error("failed to purge operation log", zap.String("namespace", "jobs"), zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("operation log purged", zap.String("namespace", "jobs"), zap.Int64("rows", n))
	}
}

// SchedStockReportTask logs the products that ran out of stock.
func (a *Application) SchedStockReportTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	products, err := a.queries.ListOutOfStock(context.Background())
	if err != nil {
		zap.L().Error("stock report failed", zap.String("namespace", "jobs"), zap.Error(err))
		return
	}
	if len(products) == 0 {
		zap.L().Debug("all products are in stock", zap.String("namespace", "jobs"))
		return
	}
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	zap.L().Warn("products out of stock",
		zap.String("namespace", "jobs"),
		zap.Int("count", len(names)),
		zap.Strings("products", names),
	)
}
