package gather

import (
	"context"
	"fmt"
	"strings"

	"nsedata/internal/frame"
	"nsedata/internal/report"
	"nsedata/internal/store"

	"time"
)

// DownloadIndexData fetches index history for [from, to] in a single call
// and rewrites the CSV at path. Index fetches are not chunked, so an empty
// response for the whole range is informative and propagates as
// ErrNoDataInRange rather than being tolerated the way empty stock chunks
// are. Spaces in path are replaced with underscores, since index names
// contain them.
func (c *Client) DownloadIndexData(ctx context.Context, index string, from, to time.Time, path string) (*frame.Frame, error) {
	path = strings.ReplaceAll(path, " ", "_")

	fromStr := frame.Day(from).Format(ProviderDateLayout)
	toStr := frame.Day(to).Format(ProviderDateLayout)
	log := c.log.With("index", index)
	log.Info("downloading index history", "from", fromStr, "to", toStr)

	cctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	raw, err := c.index(cctx, index, fromStr, toStr)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("fetching index %s %s to %s: %w", index, fromStr, toStr, err)
	}
	if raw == nil || raw.NumRows() == 0 {
		return nil, fmt.Errorf("%w: %s %s to %s", ErrNoDataInRange, index, fromStr, toStr)
	}

	out := frame.Concat(raw) // copy before renaming
	out.Rename("TIMESTAMP", "Date")
	out.Rename("CLOSE_INDEX_VAL", "Close")

	if err := store.SaveCSV(out, path); err != nil {
		return nil, fmt.Errorf("saving %s: %w", path, err)
	}

	sum := report.Summarize(out)
	log.Info("saved index dataset", "path", path, "rows", out.NumRows(), "summary", sum.String())
	return out, nil
}
