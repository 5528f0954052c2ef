package gather

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"nsedata/internal/frame"
	"nsedata/internal/report"
	"nsedata/internal/store"
)

// Watermarker supplies the authoritative latest persisted date per symbol,
// typically backed by the local price database.
type Watermarker interface {
	MaxStockDate(ctx context.Context, symbol string) (time.Time, bool, error)
}

// Client drives incremental downloads for one symbol at a time: it works
// out which date sub-ranges are missing relative to the per-symbol CSV and
// the database watermark, fetches only those through the primary/fallback
// sources, and merges the result back into the CSV.
//
// A Client is safe for concurrent use across different symbols; two
// concurrent downloads of the same symbol race on the same file and must be
// serialized by the caller.
type Client struct {
	primary   PrimaryFetch
	secondary SecondaryFetch
	index     IndexFetch
	db        Watermarker // may be nil
	opts      Options
	log       *slog.Logger
	now       func() time.Time // test hook
}

// NewClient creates a Client over the given fetch functions. db may be nil
// when no price database is available; its absence (or any failure reading
// it) only removes the database's influence on gap planning.
func NewClient(primary PrimaryFetch, secondary SecondaryFetch, index IndexFetch, db Watermarker, opts Options) *Client {
	return &Client{
		primary:   primary,
		secondary: secondary,
		index:     index,
		db:        db,
		opts:      opts.withDefaults(),
		log:       slog.Default().With("component", "gather"),
		now:       time.Now,
	}
}

// DownloadStockData incrementally updates the CSV at path with history for
// symbol over [from, to] and returns the merged dataset. Only date ranges
// missing from the CSV and the database watermark are fetched; when nothing
// is missing the existing data is returned unchanged and the file is not
// rewritten. A failed save propagates; fetch failures degrade to a partial
// result and are only logged.
func (c *Client) DownloadStockData(ctx context.Context, symbol string, from, to time.Time, path string) (*frame.Frame, error) {
	from, to = frame.Day(from), frame.Day(to)
	log := c.log.With("symbol", symbol)
	log.Info("downloading stock history",
		"from", from.Format(frame.DateLayout), "to", to.Format(frame.DateLayout))

	// The database's watermark is authoritative over the file's when both
	// exist; a read failure is non-fatal and degrades to file-only planning.
	var dbMax time.Time
	var dbMaxOK bool
	if c.db != nil {
		d, ok, err := c.db.MaxStockDate(ctx, symbol)
		switch {
		case err != nil:
			log.Warn("could not read max date from database", "err", err)
		case ok:
			dbMax, dbMaxOK = frame.Day(d), true
			log.Info("existing end date (db)", "date", dbMax.Format(frame.DateLayout))
		}
	}

	var existing *frame.Frame
	var fileMin, fileMax time.Time
	var fileOK bool
	if ef, err := store.LoadCSV(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("failed to read existing file, treating as absent", "path", path, "err", err)
		}
	} else {
		existing = ef
		log.Info("existing rows in file", "path", path, "rows", ef.NumRows())
		fileMin, fileMax, fileOK = ef.DateBounds(ColDate)
		if ef.NumRows() > 0 && !fileOK {
			// Rows without a single parseable date: malformed, same as absent.
			log.Warn("existing file has no parseable dates, treating as absent", "path", path)
			existing = nil
		}
	}

	today := frame.Day(c.now())
	if (dbMaxOK && dbMax.Equal(today)) || (fileOK && fileMax.Equal(today)) {
		log.Info("already up to date for today, skipping", "date", today.Format(frame.DateLayout))
		if existing != nil {
			return existing, nil
		}
		return EmptyCanonical(), nil
	}

	// The backfill and extend fetches are independent: a failure in one
	// never prevents the other, and either may run alone.
	var fetched []*frame.Frame
	switch {
	case existing != nil && existing.NumRows() > 0 && fileOK:
		log.Info("date range in file",
			"min", fileMin.Format(frame.DateLayout), "max", fileMax.Format(frame.DateLayout))

		if from.Before(fileMin) {
			end := fileMin.AddDate(0, 0, -1)
			log.Info("backfilling before existing data",
				"from", from.Format(frame.DateLayout), "to", end.Format(frame.DateLayout))
			fetched = append(fetched, c.fetchRange(ctx, symbol, from, end))
		}

		effectiveMax := fileMax
		if dbMaxOK {
			effectiveMax = dbMax
		}
		if to.After(effectiveMax) {
			start := effectiveMax.AddDate(0, 0, 1)
			log.Info("extending after existing data",
				"from", start.Format(frame.DateLayout), "to", to.Format(frame.DateLayout))
			fetched = append(fetched, c.fetchRange(ctx, symbol, start, to))
		}

	case dbMaxOK:
		start := dbMax.AddDate(0, 0, 1)
		if !start.After(to) {
			log.Info("no usable file, continuing from database watermark",
				"from", start.Format(frame.DateLayout), "to", to.Format(frame.DateLayout))
			fetched = append(fetched, c.fetchRange(ctx, symbol, start, to))
		} else {
			log.Info("no new dates to fetch after database watermark")
		}

	default:
		log.Info("no existing data in file or database, downloading full range")
		fetched = append(fetched, c.fetchRange(ctx, symbol, from, to))
	}

	if len(fetched) == 0 {
		if existing != nil {
			log.Info("no new data to download, file already covers the range")
			return existing, nil
		}
		return EmptyCanonical(), nil
	}

	// Existing data first, new data appended: keep-last dedup makes the
	// newly fetched record win for any date present in both.
	all := make([]*frame.Frame, 0, len(fetched)+1)
	if existing != nil {
		all = append(all, existing)
	}
	all = append(all, fetched...)

	merged := frame.Concat(all...)
	merged.DedupSortByDate(ColDate, false)

	if err := store.SaveCSV(merged, path); err != nil {
		return nil, fmt.Errorf("saving %s: %w", path, err)
	}

	sum := report.Summarize(merged)
	log.Info("saved merged dataset", "path", path, "rows", merged.NumRows(), "summary", sum.String())
	return merged, nil
}

// fetchRange resolves one missing sub-range: the primary source under a
// deadline, falling back to the chunked secondary source on timeout or
// transient failure. A no-data classification is terminal and comes back as
// an empty canonical frame with no fallback attempted. fetchRange never
// fails; a fully failed range is simply empty.
func (c *Client) fetchRange(ctx context.Context, symbol string, from, to time.Time) *frame.Frame {
	fromStr := from.Format(frame.DateLayout)
	toStr := to.Format(frame.DateLayout)

	c.log.Info("primary fetch", "symbol", symbol, "from", fromStr, "to", toStr)
	cctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	raw, err := c.primary(cctx, symbol, from, to, c.opts.DefaultSeries)
	cancel()

	if err == nil {
		return NormalizePrimary(raw, symbol, c.opts.DefaultSeries)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.log.Warn("primary fetch timed out, falling back to secondary",
			"symbol", symbol, "from", fromStr, "to", toStr)
	case IsNoData(err):
		c.log.Info("no primary data for range (likely pre-listing), skipping",
			"symbol", symbol, "from", fromStr, "to", toStr, "err", err)
		return EmptyCanonical()
	default:
		c.log.Warn("primary fetch failed, falling back to secondary",
			"symbol", symbol, "from", fromStr, "to", toStr, "err", err)
	}

	return FetchChunked(ctx, c.secondary, symbol, from, to, c.opts, c.log)
}
