package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shop-service/config"
	"shop-service/internal/importer"
	"shop-service/internal/redisclient"
	"shop-service/internal/service"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <base_path>\n", os.Args[0])
		os.Exit(2)
	}
	basePath := os.Args[1]

	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	result, err := importer.New(db).Run(ctx, basePath)
	if err != nil {
		logger.Fatal("Import failed", zap.Error(err))
	}

	// Featured sections embed product prices, drop them so the storefront
	// picks up the new catalog.
	if result.Imported > 0 {
		invalidateSections(ctx, cfg, db, logger)
	}

	fmt.Printf("Import completed. Imported: %d, Skipped/Errored: %d\n", result.Imported, result.Skipped)
}

func invalidateSections(ctx context.Context, cfg *config.Config, db *store.Store, logger *zap.Logger) {
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Skipping section cache invalidation", zap.Error(err))
		return
	}
	defer redisClient.Close()

	sections := service.NewSectionsService(db, redisClient, cfg.Business.FeaturedCacheTTL)
	if err := sections.Invalidate(ctx); err != nil {
		logger.Warn("Failed to invalidate section cache", zap.Error(err))
	}
}
