package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/db"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/migrate"
	"github.com/angelmondragon/checkout-backend/pkg/security"
)

const adminKeyLength = 40

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	restock := flag.Bool("restock", false, "reset inventory of an existing sample product")
	adminKey := flag.Bool("admin-key", false, "generate an admin API key and print its hash")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"driver": cfg.DB.Driver,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	requireResource(ctx, logg, "migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	var result seedResult
	err = dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = seedCatalog(ctx, tx, sampleProduct(), *restock)
		return err
	})
	requireResource(ctx, logg, "catalog", err)

	ctx = logg.WithProductID(ctx, result.Product.ID.String())
	if result.Created {
		logg.Info(ctx, "sample product created")
	} else {
		logg.Info(ctx, "sample product already present")
	}
	fmt.Println("product id:", result.Product.ID)

	if *adminKey {
		key, err := security.GenerateAPIKey(adminKeyLength)
		requireResource(ctx, logg, "admin key", err)
		hash, err := security.HashAPIKey(key, security.DefaultParams)
		requireResource(ctx, logg, "admin key hash", err)
		fmt.Println("admin api key:", key)
		fmt.Printf("%s=%s\n", config.EnvAdminAPIKeyHash, hash)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
