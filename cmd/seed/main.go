// Package main provides a CLI tool for seeding the database with demo
// locations and stock.
package main

import (
	"context"
	"fmt"
	"os"

	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/domain/item"
	"stockledger/internal/domain/location"
	"stockledger/internal/infrastructure/auth"
	"stockledger/pkg/logger"
)

type demoItem struct {
	productID string
	sku       string
	quantity  int64
	lowStock  int64
	reorderAt int64
	reorderQt int64
}

var demoLocations = []struct {
	name  string
	kind  location.Type
	city  string
	items []demoItem
}{
	{
		name: "Central Warehouse", kind: location.TypeWarehouse, city: "Rotterdam",
		items: []demoItem{
			{"prod-espresso-beans", "BEAN-ESP-1KG", 240, 40, 60, 200},
			{"prod-filter-papers", "FLT-PAP-100", 1200, 200, 300, 1000},
			{"prod-grinder", "GRD-BURR-01", 18, 5, 8, 20},
		},
	},
	{
		name: "Downtown Store", kind: location.TypeStore, city: "Amsterdam",
		items: []demoItem{
			{"prod-espresso-beans", "BEAN-ESP-1KG", 12, 10, 10, 30},
			{"prod-grinder", "GRD-BURR-01", 0, 2, 2, 4},
		},
	},
	{
		name: "East Fulfillment", kind: location.TypeFulfillmentCenter, city: "Utrecht",
		items: []demoItem{
			{"prod-filter-papers", "FLT-PAP-100", 300, 100, 150, 500},
		},
	},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer rt.Close()

	log.Infow("connected", "storage", cfg.App.StorageDriver)

	if err := seedDemoData(ctx, rt.Services, log); err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	if cfg.JWT.Secret != "" && os.Getenv("SEED_ISSUE_TOKEN") == "true" {
		if err := issueToken(cfg, log); err != nil {
			log.Fatalw("failed to issue token", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedDemoData creates whatever part of the demo data set is missing, so it can
// be rerun against a seeded database.
func seedDemoData(ctx context.Context, svc *app.Services, log *logger.Logger) error {
	existing, err := svc.Locations.List(ctx, true)
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}
	byName := make(map[string]*location.Location, len(existing))
	for _, loc := range existing {
		byName[loc.Name] = loc
	}

	for _, demo := range demoLocations {
		loc, ok := byName[demo.name]
		if !ok {
			loc = location.NewLocation(demo.name, demo.kind)
			city := demo.city
			loc.City = &city
			if err := svc.Locations.Create(ctx, loc); err != nil {
				return fmt.Errorf("create location %s: %w", demo.name, err)
			}
			log.Infow("location created", "name", loc.Name, "id", loc.ID)
		}

		for _, d := range demo.items {
			found, err := svc.Items.FindBySKU(ctx, d.sku, &loc.ID)
			if err != nil {
				return fmt.Errorf("find %s: %w", d.sku, err)
			}
			if len(found) > 0 {
				continue
			}

			it, err := svc.Items.Create(ctx, item.CreateRequest{
				ProductID:         d.productID,
				SKU:               d.sku,
				LocationID:        loc.ID,
				Quantity:          d.quantity,
				LowStockThreshold: d.lowStock,
				ReorderPoint:      d.reorderAt,
				ReorderQuantity:   d.reorderQt,
			})
			if err != nil {
				return fmt.Errorf("create item %s at %s: %w", d.sku, demo.name, err)
			}
			log.Infow("item created", "sku", it.SKU, "location", demo.name, "quantity", it.Quantity)
		}
	}
	return nil
}

// issueToken prints a development bearer token signed with the configured secret.
func issueToken(cfg *config.Config, log *logger.Logger) error {
	svc := auth.NewJWTService(auth.JWTConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	userID := os.Getenv("SEED_TOKEN_USER")
	if userID == "" {
		userID = "seed-admin"
	}
	token, expiresAt, err := svc.GenerateAccessToken(userID, userID+"@stockledger.local", []string{"admin"})
	if err != nil {
		return err
	}

	log.Infow("development token issued", "user_id", userID, "expires_at", expiresAt)
	fmt.Println(token)
	return nil
}
