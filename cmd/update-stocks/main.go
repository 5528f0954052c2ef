// Incremental stock history downloader: fetches missing date ranges for
// every universe symbol (or one symbol with -symbol) and merges them into
// the per-symbol CSVs under the price history directory.
//
// Usage:
//
//	go run cmd/update-stocks/main.go [-symbol RELIANCE] [-from 2020-01-01] [-to 2024-06-30]
package main

import (
	"context"
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
	symbol := flag.String("symbol", "", "update a single symbol instead of the whole universe")
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

	// The database is optional here: without it the planner falls back to
	// file-only gap detection and the universe must come from -symbol.
	var db *store.DB
	if d, err := store.Open(cfg.Storage.SQLitePath); err != nil {
		logger.Warn("could not open price database, planning from files only", "err", err)
	} else {
		db = d
		defer db.Close()
	}

	symbols := []string{*symbol}
	if *symbol == "" {
		if db == nil {
			log.Fatalf("no -symbol given and no database for the universe")
		}
		symbols, err = db.UniverseSymbols(ctx, cfg.Universe.Exchange)
		if err != nil {
			log.Fatalf("failed to list universe symbols: %v", err)
		}
		if len(symbols) == 0 {
			log.Fatalf("universe is empty; run populate-universe first")
		}
	}

	primary := nse.NewPrimaryClient()
	secondary := nse.NewSecondaryClient()
	var watermarker gather.Watermarker
	if db != nil {
		watermarker = db
	}
	client := gather.NewClient(primary.FetchEquity, secondary.FetchPriceVolume, secondary.FetchIndex,
		watermarker, gather.Options{
			DefaultSeries: cfg.Fetch.DefaultSeries,
			ChunkDays:     cfg.Fetch.ChunkDays,
			Timeout:       cfg.Fetch.Timeout(),
		})

	limiter := util.NewRateLimiter(cfg.Fetch.RateLimitPerMin)
	var batch report.BatchSummary
	for _, sym := range symbols {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		path := filepath.Join(cfg.Storage.PriceHistoryDir(), sym+".csv")
		if _, err := client.DownloadStockData(ctx, sym, from, to, path); err != nil {
			logger.Error("stock update failed", "symbol", sym, "err", err)
			batch.Failure(sym)
			continue
		}
		batch.Success()
	}

	logger.Info("stock update run finished", "summary", batch.String())
	if batch.Succeeded == 0 && batch.Total > 0 {
		os.Exit(1)
	}
}
