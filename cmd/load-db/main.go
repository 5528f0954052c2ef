// One-shot tool: load the downloaded CSV archive into the SQLite price
// tables. Rows at or before each symbol's stored watermark are skipped, so
// reruns only pick up new history.
//
// Usage:
//
//	go run cmd/load-db/main.go
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"nsedata/internal/config"
	"nsedata/internal/frame"
	"nsedata/internal/report"
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

	load := func(dir string, nameFor func(string) string, insert func(context.Context, *frame.Frame, string) (int, error)) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Warn("skipping directory", "dir", dir, "err", err)
			return
		}

		var batch report.BatchSummary
		rows := 0
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ".csv")
			f, err := store.LoadCSV(filepath.Join(dir, e.Name()))
			if err != nil {
				logger.Error("failed to read csv", "file", e.Name(), "err", err)
				batch.Failure(name)
				continue
			}
			n, err := insert(ctx, f, nameFor(name))
			if err != nil {
				logger.Error("failed to load history", "file", e.Name(), "err", err)
				batch.Failure(name)
				continue
			}
			rows += n
			batch.Success()
		}
		logger.Info("directory loaded", "dir", dir, "rows", report.FormatInt(rows), "summary", batch.String())
	}

	same := func(name string) string { return name }
	// Index files carry underscores for the spaces in index names.
	spaced := func(name string) string { return strings.ReplaceAll(name, "_", " ") }

	load(cfg.Storage.PriceHistoryDir(), same, db.LoadStockHistory)
	load(cfg.Storage.IndexHistoryDir(), spaced, db.LoadIndexHistory)
}
