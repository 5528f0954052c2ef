package nse

import (
	"context"
	"fmt"
	"net/url"

	"nsedata/internal/frame"
)

// SecondaryClient fetches from the capital-market archive endpoints. They
// are slower than the primary endpoint and only accept bounded date
// windows, so the gather pipeline always drives them through the chunked
// fetcher. Dates are passed pre-formatted as DD-MM-YYYY.
type SecondaryClient struct {
	s *session
}

// NewSecondaryClient creates a SecondaryClient against the live NSE site.
func NewSecondaryClient() *SecondaryClient {
	return &SecondaryClient{s: newSession(BaseURL)}
}

// archiveColumns maps each CH_ field to the archive schema's friendly
// column name, in output order. The full column normalizer downstream
// resolves these into the canonical schema.
var archiveColumns = []struct {
	field  string
	column string
}{
	{"CH_TIMESTAMP", "Date"},
	{"CH_SYMBOL", "Symbol"},
	{"CH_SERIES", "Series"},
	{"CH_OPENING_PRICE", "OpenPrice"},
	{"CH_TRADE_HIGH_PRICE", "HighPrice"},
	{"CH_TRADE_LOW_PRICE", "LowPrice"},
	{"CH_PREVIOUS_CLS_PRICE", "PrevClose"},
	{"CH_LAST_TRADED_PRICE", "LastPrice"},
	{"CH_CLOSING_PRICE", "ClosePrice"},
	{"VWAP", "AveragePrice"},
	{"CH_TOT_TRADED_QTY", "TotalTradedQuantity"},
	{"CH_TOT_TRADED_VAL", "Turnover₹"},
	{"CH_TOTAL_TRADES", "No.ofTrades"},
}

// FetchPriceVolume retrieves one price-volume archive window for a symbol.
// It satisfies gather.SecondaryFetch.
func (c *SecondaryClient) FetchPriceVolume(ctx context.Context, symbol, fromDate, toDate string) (*frame.Frame, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("dataType", "priceVolume")
	q.Set("series", "ALL")
	q.Set("from", fromDate)
	q.Set("to", toDate)

	var resp struct {
		Data []map[string]any `json:"data"`
	}
	if err := c.s.getJSON(ctx, "/api/historical/securityArchives", q, &resp); err != nil {
		return nil, fmt.Errorf("archive price-volume %s %s to %s: %w", symbol, fromDate, toDate, err)
	}

	cols := make([]string, len(archiveColumns))
	for i, ac := range archiveColumns {
		cols[i] = ac.column
	}
	out := frame.New(cols...)
	for _, rec := range resp.Data {
		row := make([]string, len(archiveColumns))
		for i, ac := range archiveColumns {
			row[i] = cellString(rec[ac.field])
		}
		out.Append(row)
	}
	return out, nil
}

// FetchIndex retrieves index history for one range. The endpoint splits
// close values and turnover figures into two record sets joined here on
// timestamp. It satisfies gather.IndexFetch.
func (c *SecondaryClient) FetchIndex(ctx context.Context, index, fromDate, toDate string) (*frame.Frame, error) {
	q := url.Values{}
	q.Set("indexType", index)
	q.Set("from", fromDate)
	q.Set("to", toDate)

	var resp struct {
		Data struct {
			CloseRecords    []map[string]any `json:"indexCloseOnlineRecords"`
			TurnoverRecords []map[string]any `json:"indexTurnoverRecords"`
		} `json:"data"`
	}
	if err := c.s.getJSON(ctx, "/api/historical/indicesHistory", q, &resp); err != nil {
		return nil, fmt.Errorf("index history %s %s to %s: %w", index, fromDate, toDate, err)
	}

	// Turnover figures keyed by their HIT_ timestamp.
	turnover := make(map[string]map[string]any, len(resp.Data.TurnoverRecords))
	for _, rec := range resp.Data.TurnoverRecords {
		turnover[cellString(rec["HIT_TIMESTAMP"])] = rec
	}

	out := frame.New(
		"TIMESTAMP", "INDEX_NAME",
		"OPEN_INDEX_VAL", "HIGH_INDEX_VAL", "LOW_INDEX_VAL", "CLOSE_INDEX_VAL",
		"TRADED_QTY", "TURN_OVER",
	)
	for _, rec := range resp.Data.CloseRecords {
		ts := cellString(rec["EOD_TIMESTAMP"])
		row := []string{
			ts,
			cellString(rec["EOD_INDEX_NAME"]),
			cellString(rec["EOD_OPEN_INDEX_VAL"]),
			cellString(rec["EOD_HIGH_INDEX_VAL"]),
			cellString(rec["EOD_LOW_INDEX_VAL"]),
			cellString(rec["EOD_CLOSE_INDEX_VAL"]),
			"",
			"",
		}
		if t, ok := turnover[ts]; ok {
			row[6] = cellString(t["HIT_TRADED_QTY"])
			row[7] = cellString(t["HIT_TURN_OVER"])
		}
		out.Append(row)
	}
	return out, nil
}
