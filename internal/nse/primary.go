package nse

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"nsedata/internal/frame"
	"nsedata/internal/gather"
)

// PrimaryClient fetches equity history from the fast historical endpoint.
// Its JSON rows carry internal CH_-prefixed field names; the client emits
// them under the conventional display schema that the light primary
// normalizer expects (PREV. CLOSE, NO OF TRADES, 52W H, ...).
type PrimaryClient struct {
	s *session
}

// NewPrimaryClient creates a PrimaryClient against the live NSE site.
func NewPrimaryClient() *PrimaryClient {
	return &PrimaryClient{s: newSession(BaseURL)}
}

type primaryResponse struct {
	Data []map[string]any `json:"data"`
}

// primaryColumns maps each CH_ field to the column name it is emitted
// under, in output order.
var primaryColumns = []struct {
	field  string
	column string
}{
	{"CH_TIMESTAMP", "DATE"},
	{"CH_SERIES", "SERIES"},
	{"CH_OPENING_PRICE", "OPEN"},
	{"CH_TRADE_HIGH_PRICE", "HIGH"},
	{"CH_TRADE_LOW_PRICE", "LOW"},
	{"CH_PREVIOUS_CLS_PRICE", "PREV. CLOSE"},
	{"CH_LAST_TRADED_PRICE", "LTP"},
	{"CH_CLOSING_PRICE", "CLOSE"},
	{"VWAP", "VWAP"},
	{"CH_52WEEK_HIGH_PRICE", "52W H"},
	{"CH_52WEEK_LOW_PRICE", "52W L"},
	{"CH_TOT_TRADED_QTY", "VOLUME"},
	{"CH_TOT_TRADED_VAL", "VALUE"},
	{"CH_TOTAL_TRADES", "NO OF TRADES"},
	{"CH_SYMBOL", "SYMBOL"},
}

// FetchEquity retrieves raw equity history for [from, to] in one request.
// It satisfies gather.PrimaryFetch. A response whose rows lack their CH_
// fields — how the endpoint answers for ranges before a symbol listed —
// comes back as an error wrapping gather.ErrNoData.
func (c *PrimaryClient) FetchEquity(ctx context.Context, symbol string, from, to time.Time, series string) (*frame.Frame, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("series", fmt.Sprintf("[%q]", series))
	q.Set("from", from.Format(gather.ProviderDateLayout))
	q.Set("to", to.Format(gather.ProviderDateLayout))

	var resp primaryResponse
	if err := c.s.getJSON(ctx, "/api/historical/cm/equity", q, &resp); err != nil {
		return nil, fmt.Errorf("primary equity %s: %w", symbol, err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("primary equity %s: %w (no CH_TIMESTAMP rows)", symbol, gather.ErrNoData)
	}
	if _, ok := resp.Data[0]["CH_TIMESTAMP"]; !ok {
		return nil, fmt.Errorf("primary equity %s: %w (rows missing CH_TIMESTAMP)", symbol, gather.ErrNoData)
	}

	cols := make([]string, len(primaryColumns))
	for i, pc := range primaryColumns {
		cols[i] = pc.column
	}
	out := frame.New(cols...)
	for _, rec := range resp.Data {
		row := make([]string, len(primaryColumns))
		for i, pc := range primaryColumns {
			row[i] = cellString(rec[pc.field])
		}
		out.Append(row)
	}
	return out, nil
}
