package app

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/talkincode/thriftmart/internal/inventory"
	"go.uber.org/zap"
)

type demoProduct struct {
	Name     string
	Price    string
	Quantity int
}

var defaultProducts = []demoProduct{
	{Name: "apple", Price: "0.50", Quantity: 200},
	{Name: "banana", Price: "0.25", Quantity: 150},
	{Name: "coffee beans", Price: "12.99", Quantity: 40},
	{Name: "dish soap", Price: "3.49", Quantity: 60},
	{Name: "paper towels", Price: "5.75", Quantity: 0},
}

// SeedDemo creates the demo catalog, skipping products that already exist.
// It returns the number of products created.
func (a *Application) SeedDemo(ctx context.Context) int {
	return a.checkProducts(ctx)
}

// checkProducts initializes the demo catalog
func (a *Application) checkProducts(ctx context.Context) int {
	created := 0
	for _, p := range defaultProducts {
		_, err := a.engine.CreateProduct(ctx, p.Name, decimal.RequireFromString(p.Price), p.Quantity)
		switch {
		case err == nil:
			created++
			zap.L().Info("initialized demo product", zap.String("name", p.Name))
		case errors.Is(err, inventory.ErrAlreadyExists):
		default:
			zap.L().Error("failed to create demo product", zap.String("name", p.Name), zap.Error(err))
		}
	}
	return created
}
