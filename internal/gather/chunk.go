package gather

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"nsedata/internal/frame"
)

// FetchChunked retrieves [from, to] from the secondary source in windows of
// at most opts.ChunkDays days, each under its own deadline. Chunks run
// strictly in ascending date order; a chunk that times out or fails is
// logged and skipped without aborting its siblings. The result is the
// normalized, date-deduplicated (keep last), ascending concatenation of the
// chunks that succeeded. A from date after to yields an empty canonical
// frame immediately, as does a range where every chunk failed or was empty.
func FetchChunked(ctx context.Context, fetch SecondaryFetch, symbol string, from, to time.Time, opts Options, log *slog.Logger) *frame.Frame {
	opts = opts.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	if from.After(to) {
		return EmptyCanonical()
	}

	var chunks []*frame.Frame
	start := frame.Day(from)
	to = frame.Day(to)
	for !start.After(to) {
		end := start.AddDate(0, 0, opts.ChunkDays-1)
		if end.After(to) {
			end = to
		}
		startStr := start.Format(ProviderDateLayout)
		endStr := end.Format(ProviderDateLayout)

		log.Info("secondary chunk", "symbol", symbol, "from", startStr, "to", endStr)

		cctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		raw, err := fetch(cctx, symbol, startStr, endStr)
		cancel()

		switch {
		case err != nil && errors.Is(err, context.DeadlineExceeded):
			log.Warn("secondary chunk timed out", "symbol", symbol, "from", startStr, "to", endStr)
		case err != nil:
			log.Warn("secondary chunk failed", "symbol", symbol, "from", startStr, "to", endStr, "err", err)
		case raw != nil && raw.NumRows() > 0:
			chunks = append(chunks, NormalizeEquity(raw, symbol, opts.DefaultSeries))
		}

		start = end.AddDate(0, 0, 1)
	}

	if len(chunks) == 0 {
		return EmptyCanonical()
	}
	out := frame.Concat(chunks...)
	out.DedupSortByDate(ColDate, true)
	return out
}
