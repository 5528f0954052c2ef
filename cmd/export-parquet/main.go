// One-shot tool: export the CSV archive as per-symbol Parquet snapshots
// under the snapshot directory.
//
// Usage:
//
//	go run cmd/export-parquet/main.go
package main

import (
	"log"
	"os"
	"path/filepath"

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

	snapDir := cfg.Storage.SnapshotDir()

	n, err := store.ExportStockSnapshots(cfg.Storage.PriceHistoryDir(), filepath.Join(snapDir, "stocks"))
	if err != nil {
		log.Fatalf("stock snapshot export failed after %d files: %v", n, err)
	}
	logger.Info("stock snapshots exported", "files", n)

	n, err = store.ExportIndexSnapshots(cfg.Storage.IndexHistoryDir(), filepath.Join(snapDir, "indices"))
	if err != nil {
		log.Fatalf("index snapshot export failed after %d files: %v", n, err)
	}
	logger.Info("index snapshots exported", "files", n)
}
