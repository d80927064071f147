package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/roadiebag/internal/config"
	"github.com/vbonduro/roadiebag/internal/db"
	"github.com/vbonduro/roadiebag/internal/logging"
	"github.com/vbonduro/roadiebag/internal/random"
	"github.com/vbonduro/roadiebag/internal/service"
	"github.com/vbonduro/roadiebag/internal/store"
	"github.com/vbonduro/roadiebag/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		logger.Error("invalid database driver", "error", err)
		return
	}

	database, err := db.Open(ctx, dialect, cfg.DSN())
	if err != nil {
		logger.Error("failed to open database", "driver", dialect, "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	var rng *random.Source
	if cfg.RandomSeed != nil {
		logger.Info("using fixed random seed", "seed", *cfg.RandomSeed)
		rng = random.New(*cfg.RandomSeed)
	} else {
		rng = random.NewFromEntropy()
	}

	catalog := service.NewCatalogService(store.NewItemStore(database), logger)
	checkouts := service.NewCheckoutService(store.NewCheckoutStore(database, rng), logger)
	server := web.NewServer(catalog, checkouts, logger)

	if err := server.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}
