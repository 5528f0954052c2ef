// Package gather implements the incremental fetch-and-merge pipeline for
// historical NSE price data: column normalization across provider schema
// drift, chunked range fetching with per-chunk deadlines, primary/fallback
// source resolution, and the gap-detecting merge engine that keeps the
// per-symbol CSV archive consistent.
package gather

import (
	"context"
	"errors"
	"strings"
	"time"

	"nsedata/internal/frame"
)

// PrimaryFetch fetches a full [from, to] range for a symbol in one call
// against the fast primary source. No chunk-size limit is guaranteed.
type PrimaryFetch func(ctx context.Context, symbol string, from, to time.Time, series string) (*frame.Frame, error)

// SecondaryFetch fetches one bounded window from the slower secondary
// source. Dates are formatted DD-MM-YYYY, as the provider requires.
type SecondaryFetch func(ctx context.Context, symbol, fromDate, toDate string) (*frame.Frame, error)

// IndexFetch fetches index history for a full range in one call. Dates are
// formatted DD-MM-YYYY.
type IndexFetch func(ctx context.Context, index, fromDate, toDate string) (*frame.Frame, error)

// ProviderDateLayout is the DD-MM-YYYY format the secondary source accepts.
const ProviderDateLayout = "02-01-2006"

// ErrNoData marks a terminal "no data exists for this range" condition from
// the primary source (typically a symbol not yet listed in the period).
// Ranges failing with it are returned empty without falling back.
var ErrNoData = errors.New("no data for symbol in range")

// ErrNoDataInRange is raised when a single-shot index fetch returns an empty
// table for the whole requested range. Unlike chunked stock fetches, where
// empty chunks are tolerated, this is surfaced to the caller.
var ErrNoDataInRange = errors.New("no data available in range")

// IsNoData reports whether err should be treated as the terminal no-data
// condition. Besides the sentinel, it matches errors mentioning the primary
// source's internal "CH_"-prefixed field names, the way its lookup failures
// surface for pre-listing symbols. The substring match is a known heuristic
// against a provider internal, not a guaranteed contract.
func IsNoData(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoData) {
		return true
	}
	return strings.Contains(err.Error(), "CH_")
}

// Options is the explicit configuration value object shared by the fetch
// and merge components.
type Options struct {
	DefaultSeries string        // series assumed when the source omits one
	ChunkDays     int           // max days per secondary-source window
	Timeout       time.Duration // wall-clock bound per fetch attempt
}

// withDefaults fills zero fields with the stock defaults.
func (o Options) withDefaults() Options {
	if o.DefaultSeries == "" {
		o.DefaultSeries = "EQ"
	}
	if o.ChunkDays <= 0 {
		o.ChunkDays = 60
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	return o
}
