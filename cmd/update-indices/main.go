// Index history downloader: fetches full-range history for every universe
// index (or one index with -index) and rewrites the per-index CSVs under
// the index history directory.
//
// Usage:
//
//	go run cmd/update-indices/main.go [-index "NIFTY 50"] [-type broad]
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"nsedata/internal/config"
	"nsedata/internal/frame"
	"nsedata/internal/gather"
	"nsedata/internal/nse"
	"nsedata/internal/report"
	"nsedata/internal/store"
	"nsedata/internal/util"
)

func main() {
	index := flag.String("index", "", "update a single index instead of the whole universe")
	indexType := flag.String("type", "", "filter universe indices by type (e.g. broad, sectoral)")
	fromFlag := flag.String("from", "", "start date (YYYY-MM-DD), default config start_date")
	toFlag := flag.String("to", "", "end date (YYYY-MM-DD), default today")
	flag.Parse()

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

	from, ok := frame.ParseDate(cfg.Fetch.StartDate)
	if *fromFlag != "" {
		from, ok = frame.ParseDate(*fromFlag)
	}
	if !ok {
		log.Fatalf("invalid from date")
	}
	to := frame.Day(time.Now())
	if *toFlag != "" {
		if to, ok = frame.ParseDate(*toFlag); !ok {
			log.Fatalf("invalid to date %q", *toFlag)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	indices := []string{*index}
	if *index == "" {
		db, err := store.Open(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open price database: %v", err)
		}
		indices, err = db.UniverseIndices(ctx, cfg.Universe.Exchange, *indexType)
		db.Close()
		if err != nil {
			log.Fatalf("failed to list universe indices: %v", err)
		}
		if len(indices) == 0 {
			log.Fatalf("index universe is empty; run populate-universe first")
		}
	}

	primary := nse.NewPrimaryClient()
	secondary := nse.NewSecondaryClient()
	client := gather.NewClient(primary.FetchEquity, secondary.FetchPriceVolume, secondary.FetchIndex,
		nil, gather.Options{
			DefaultSeries: cfg.Fetch.DefaultSeries,
			ChunkDays:     cfg.Fetch.ChunkDays,
			Timeout:       cfg.Fetch.Timeout(),
		})

	limiter := util.NewRateLimiter(cfg.Fetch.RateLimitPerMin)
	var batch report.BatchSummary
	for _, name := range indices {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		path := filepath.Join(cfg.Storage.IndexHistoryDir(), name+".csv")
		if _, err := client.DownloadIndexData(ctx, name, from, to, path); err != nil {
			if errors.Is(err, gather.ErrNoDataInRange) {
				logger.Warn("no data for index in range", "index", name)
			} else {
				logger.Error("index update failed", "index", name, "err", err)
			}
			batch.Failure(name)
			continue
		}
		batch.Success()
	}

	logger.Info("index update run finished", "summary", batch.String())
	if batch.Succeeded == 0 && batch.Total > 0 {
		os.Exit(1)
	}
}
