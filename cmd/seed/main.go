// Package main provides a CLI tool for seeding a tenant with demo products.
// Stock is loaded through the ledger so every unit has an "entrada" movement.
package main

import (
	"context"
	"fmt"
	"os"

	"cashpoint/internal/app"
	"cashpoint/internal/config"
	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain/auth"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/internal/domain/registers/stock"
	"cashpoint/pkg/logger"
)

type demoProduct struct {
	sku          string
	name         string
	price        string
	stock        int64
	reorderPoint int64
}

var demoProducts = []demoProduct{
	{"CAF-250", "Café molido 250g", "12500", 40, 10},
	{"AZU-1K", "Azúcar 1kg", "4800", 60, 15},
	{"LEC-1L", "Leche entera 1L", "3900", 48, 12},
	{"PAN-TAJ", "Pan tajado", "6200", 25, 8},
	{"HUE-30", "Huevos x30", "18900", 20, 5},
	{"ARR-500", "Arroz 500g", "2900", 80, 20},
	{"ACE-1L", "Aceite 1L", "11200", 30, 6},
	{"GAS-350", "Gaseosa 350ml", "2500", 120, 24},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()

	tenantID, err := id.Parse(os.Getenv("SEED_TENANT_ID"))
	if err != nil {
		log.Fatal("SEED_TENANT_ID environment variable must be a UUID")
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer application.Close()

	actor := appctx.Actor{
		TenantID: tenantID,
		UserID:   id.New(),
		UserName: "seed",
		Role:     auth.RoleAdmin,
	}

	created, skipped := 0, 0
	for _, d := range demoProducts {
		err := seedProduct(ctx, application, actor, d)
		switch {
		case apperror.Is(err, apperror.CodeConflict):
			skipped++
			log.Infow("product already exists", "sku", d.sku)
		case err != nil:
			log.Fatalw("failed to seed product", "sku", d.sku, "error", err)
		default:
			created++
		}
	}

	log.Infow("seeding completed successfully", "tenant_id", tenantID, "created", created, "skipped", skipped)
}

func seedProduct(ctx context.Context, a *app.App, actor appctx.Actor, d demoProduct) error {
	price, err := types.NewMoneyFromString(d.price)
	if err != nil {
		return err
	}

	p := &product.Product{Name: d.name, SKU: d.sku, Price: price, ReorderPoint: d.reorderPoint}
	if err := a.Products.Create(ctx, actor, p); err != nil {
		return err
	}

	_, err = a.Stock.ApplyStockChange(ctx, actor, stock.Change{
		ProductID: p.ID,
		Type:      stock.TypeEntrada,
		Quantity:  d.stock,
		Reason:    "initial stock",
	})
	return err
}
