// One-shot tool: load the tradable universe (stock and index lists) from
// the configured CSVs into the SQLite database.
//
// Usage:
//
//	go run cmd/populate-universe/main.go
package main

import (
	"context"
	"log"
	"os"

	"nsedata/internal/config"
	"nsedata/internal/store"
	"nsedata/internal/util"
)

func main() {
	cfgPath := "config/nsedata.yaml"
	if p := os.Getenv("NSEDATA_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	db, err := store.Open(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	if cfg.Universe.StocksCSV != "" {
		n, err := db.PopulateUniverseStocks(ctx, cfg.Universe.StocksCSV, cfg.Universe.Exchange)
		if err != nil {
			log.Fatalf("failed to populate stock universe: %v", err)
		}
		logger.Info("stock universe populated", "csv", cfg.Universe.StocksCSV, "rows", n)
	}

	if cfg.Universe.IndicesCSV != "" {
		n, err := db.PopulateUniverseIndices(ctx, cfg.Universe.IndicesCSV, cfg.Universe.Exchange)
		if err != nil {
			log.Fatalf("failed to populate index universe: %v", err)
		}
		logger.Info("index universe populated", "csv", cfg.Universe.IndicesCSV, "rows", n)
	}
}
