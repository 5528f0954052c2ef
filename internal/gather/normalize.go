package gather

import (
	"nsedata/internal/frame"
)

// ---------------------------------------------------------------------------
// Canonical schema
// ---------------------------------------------------------------------------

// Canonical column names for equity price history, in preferred order.
const (
	ColDate      = "DATE"
	ColOpen      = "OPEN"
	ColHigh      = "HIGH"
	ColLow       = "LOW"
	ColPrevClose = "PREVCLOSE"
	ColLTP       = "LTP"
	ColClose     = "CLOSE"
	ColVWAP      = "VWAP"
	ColVolume    = "VOLUME"
	ColValue     = "VALUE"
	ColNumTrades = "NOOFTRADES"
	ColSymbol    = "SYMBOL"
	ColSeries    = "SERIES"
)

// CanonicalColumns is the full equity column set in preferred order.
var CanonicalColumns = []string{
	ColDate, ColOpen, ColHigh, ColLow, ColPrevClose, ColLTP, ColClose,
	ColVWAP, ColVolume, ColValue, ColNumTrades, ColSymbol, ColSeries,
}

// EmptyCanonical returns a zero-row frame with the full canonical column
// set. Callers receive the same shape whether a range had no data or every
// chunk failed.
func EmptyCanonical() *frame.Frame {
	return frame.New(CanonicalColumns...)
}

// columnAliases maps each canonical field to its known name variants across
// provider versions, in resolution order. Matching is case-insensitive and
// ignores non-alphanumerics (see frame.Resolve), so "Turnover (₹ Cr)"
// resolves to VALUE.
var columnAliases = map[string][]string{
	ColDate:      {"Date", "DATE", "Timestamp", "TIMESTAMP"},
	ColOpen:      {"OpenPrice", "Open Price", "OPEN", "Open"},
	ColHigh:      {"HighPrice", "High Price", "HIGH", "High"},
	ColLow:       {"LowPrice", "Low Price", "LOW", "Low"},
	ColPrevClose: {"PrevClose", "Previous Close", "PREV_CLOSE"},
	ColLTP:       {"LastPrice", "LTP", "LAST_PRICE"},
	ColClose:     {"ClosePrice", "Close Price", "CLOSE", "Close"},
	ColVWAP:      {"AveragePrice", "VWAP", "Avg Price"},
	ColVolume:    {"TotalTradedQuantity", "Total Traded Quantity", "TOTAL_TRD_QTY", "VOLUME", "Volume"},
	ColValue:     {"Turnover₹", "Turnover (₹ Cr)", "Turnover", "VALUE"},
	ColNumTrades: {"No.ofTrades", "No. of Trades", "TRADES"},
	ColSeries:    {"Series", "SERIES"},
}

// numericColumns are the canonical fields whose cells pass through numeric
// cleaning before they are accepted.
var numericColumns = []string{
	ColOpen, ColHigh, ColLow, ColPrevClose, ColLTP, ColClose,
	ColVWAP, ColVolume, ColValue, ColNumTrades,
}

// ---------------------------------------------------------------------------
// Full normalizer (secondary source)
// ---------------------------------------------------------------------------

// NormalizeEquity canonicalizes a raw secondary-source table. For every
// canonical field the known alias list is tried in order; a field with no
// matching column stays present but entirely null. Numeric cells are
// cleaned of separators and symbols, unparseable values become null, and
// rows without a parseable date are dropped. The result is deduplicated by
// date (keep last) and sorted ascending. The input is not modified.
func NormalizeEquity(raw *frame.Frame, symbol, series string) *frame.Frame {
	out := EmptyCanonical()
	if raw == nil || raw.NumRows() == 0 {
		return out
	}

	dateIdx := raw.Resolve(columnAliases[ColDate]...)
	if dateIdx < 0 {
		return out
	}

	resolved := make(map[string]int, len(numericColumns)+1)
	for _, col := range numericColumns {
		resolved[col] = raw.Resolve(columnAliases[col]...)
	}
	seriesIdx := raw.Resolve(columnAliases[ColSeries]...)

	for i := 0; i < raw.NumRows(); i++ {
		day, ok := frame.ParseDate(raw.Cell(i, dateIdx))
		if !ok {
			continue
		}

		row := make([]string, 0, len(CanonicalColumns))
		row = append(row, day.Format(frame.DateLayout))
		for _, col := range numericColumns {
			ci := resolved[col]
			if ci < 0 {
				row = append(row, "")
				continue
			}
			row = append(row, frame.CleanNumeric(raw.Cell(i, ci)))
		}
		row = append(row, symbol)
		if seriesIdx >= 0 && raw.Cell(i, seriesIdx) != "" {
			row = append(row, raw.Cell(i, seriesIdx))
		} else {
			row = append(row, series)
		}
		out.Append(row)
	}

	out.DedupSortByDate(ColDate, true)
	return out
}

// ---------------------------------------------------------------------------
// Light normalizer (primary source)
// ---------------------------------------------------------------------------

// primaryRenames are the only column fixes the primary source's schema
// needs; everything else already matches the canonical names.
var primaryRenames = [][2]string{
	{"PREV. CLOSE", ColPrevClose},
	{"NO OF TRADES", ColNumTrades},
}

// primaryDrops are columns the primary source emits that carry no meaning
// in the canonical schema.
var primaryDrops = []string{"52W H", "52W L"}

// NormalizePrimary applies the light schema fixes the primary source needs:
// a couple of renames, dropping the 52-week columns, ensuring SYMBOL and
// SERIES, and the shared date-parse/dedup/sort treatment. Unrecognized
// extra columns are kept after the preferred set in their original order.
func NormalizePrimary(raw *frame.Frame, symbol, series string) *frame.Frame {
	if raw == nil || raw.NumRows() == 0 {
		return EmptyCanonical()
	}

	out := frame.Concat(raw) // copy; the input is not modified
	for _, r := range primaryRenames {
		out.Rename(r[0], r[1])
	}
	out.Drop(primaryDrops...)
	out.EnsureColumn(ColSymbol, symbol)
	out.EnsureColumn(ColSeries, series)
	out.Reorder(CanonicalColumns)
	out.DedupSortByDate(ColDate, true)
	return out
}
