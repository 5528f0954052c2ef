// Package report computes and formats the summary statistics logged by the
// download drivers: per-dataset basics after a merge, and per-run success
// and failure tallies.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"nsedata/internal/frame"
)

// DatasetSummary holds basic statistics over a merged price dataset.
type DatasetSummary struct {
	Rows      int
	MinDate   time.Time
	MaxDate   time.Time
	HasDates  bool
	AvgClose  float64
	HasClose  bool
	AvgVolume float64
	HasVolume bool
}

// Summarize scans a dataset for its date range and average close price and
// volume. Column lookup tolerates naming drift between the equity and index
// schemas; missing or empty columns leave the corresponding Has flag unset.
func Summarize(f *frame.Frame) DatasetSummary {
	var s DatasetSummary
	if f == nil {
		return s
	}
	s.Rows = f.NumRows()

	dateIdx := f.Resolve("DATE", "Date", "Timestamp")
	closeIdx := f.Resolve("CLOSE", "Close")
	volIdx := f.Resolve("VOLUME", "Volume", "TRADED_QTY")

	var closeSum, volSum float64
	var closeN, volN int
	for i := 0; i < s.Rows; i++ {
		if dateIdx >= 0 {
			if d, ok := frame.ParseDate(f.Cell(i, dateIdx)); ok {
				if !s.HasDates || d.Before(s.MinDate) {
					s.MinDate = d
				}
				if !s.HasDates || d.After(s.MaxDate) {
					s.MaxDate = d
				}
				s.HasDates = true
			}
		}
		if closeIdx >= 0 {
			if v, err := strconv.ParseFloat(f.Cell(i, closeIdx), 64); err == nil {
				closeSum += v
				closeN++
			}
		}
		if volIdx >= 0 {
			if v, err := strconv.ParseFloat(f.Cell(i, volIdx), 64); err == nil {
				volSum += v
				volN++
			}
		}
	}

	if closeN > 0 {
		s.AvgClose = closeSum / float64(closeN)
		s.HasClose = true
	}
	if volN > 0 {
		s.AvgVolume = volSum / float64(volN)
		s.HasVolume = true
	}
	return s
}

// String renders the summary as a single human-readable log value.
func (s DatasetSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s rows", FormatInt(s.Rows))
	if s.HasDates {
		fmt.Fprintf(&b, ", %s to %s",
			s.MinDate.Format(frame.DateLayout), s.MaxDate.Format(frame.DateLayout))
	}
	if s.HasClose {
		fmt.Fprintf(&b, ", avg close %.2f", s.AvgClose)
	}
	if s.HasVolume {
		fmt.Fprintf(&b, ", avg volume %s", FormatInt(int(s.AvgVolume)))
	}
	return b.String()
}

// BatchSummary tallies per-symbol outcomes for one driver run. All
// per-symbol failures are collected here; no single failure stops the rest
// of the batch.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    []string
}

// Success records one successful symbol.
func (b *BatchSummary) Success() {
	b.Total++
	b.Succeeded++
}

// Failure records one failed symbol by name.
func (b *BatchSummary) Failure(name string) {
	b.Total++
	b.Failed = append(b.Failed, name)
}

// SuccessRate returns the fraction of successes in [0, 1], or 0 for an
// empty batch.
func (b *BatchSummary) SuccessRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Succeeded) / float64(b.Total)
}

// String renders the run summary in one line.
func (b *BatchSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "processed %s, succeeded %s, failed %s (%.1f%%)",
		FormatInt(b.Total), FormatInt(b.Succeeded), FormatInt(len(b.Failed)),
		b.SuccessRate()*100)
	if len(b.Failed) > 0 {
		fmt.Fprintf(&sb, "; failed: %s", strings.Join(b.Failed, ", "))
	}
	return sb.String()
}
