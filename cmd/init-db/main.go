// One-shot tool: create the SQLite price database and its tables.
//
// Usage:
//
//	go run cmd/init-db/main.go
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

	if err := db.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	logger.Info("database initialized", "path", cfg.Storage.SQLitePath)
}
