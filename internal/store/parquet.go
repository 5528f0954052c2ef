package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"nsedata/internal/frame"
)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// StockSnapshotRecord is the Parquet schema for one canonical equity row.
// Nullable cells map to optional columns.
type StockSnapshotRecord struct {
	Date      string   `parquet:"date"`
	Symbol    string   `parquet:"symbol"`
	Series    string   `parquet:"series"`
	Open      *float64 `parquet:"open,optional"`
	High      *float64 `parquet:"high,optional"`
	Low       *float64 `parquet:"low,optional"`
	PrevClose *float64 `parquet:"prev_close,optional"`
	LTP       *float64 `parquet:"ltp,optional"`
	Close     *float64 `parquet:"close,optional"`
	VWAP      *float64 `parquet:"vwap,optional"`
	Volume    *int64   `parquet:"volume,optional"`
	Value     *float64 `parquet:"value,optional"`
	Trades    *int64   `parquet:"trades,optional"`
}

// IndexSnapshotRecord is the Parquet schema for one index history row.
type IndexSnapshotRecord struct {
	Date     string   `parquet:"date"`
	Symbol   string   `parquet:"symbol"`
	Open     *float64 `parquet:"open,optional"`
	High     *float64 `parquet:"high,optional"`
	Low      *float64 `parquet:"low,optional"`
	Close    *float64 `parquet:"close,optional"`
	Volume   *int64   `parquet:"volume,optional"`
	Turnover *float64 `parquet:"turnover,optional"`
}

// ---------------------------------------------------------------------------
// Snapshot export (CSV archive → columnar files for the dashboard)
// ---------------------------------------------------------------------------

// ExportStockSnapshots converts every per-symbol CSV under csvDir into a
// Parquet file under outDir, sorted ascending by date. Each snapshot is a
// full rewrite. Returns the number of files written.
func ExportStockSnapshots(csvDir, outDir string) (int, error) {
	return exportSnapshots(csvDir, outDir, stockSnapshotRows)
}

// ExportIndexSnapshots converts every index history CSV under csvDir into a
// Parquet file under outDir.
func ExportIndexSnapshots(csvDir, outDir string) (int, error) {
	return exportSnapshots(csvDir, outDir, indexSnapshotRows)
}

func exportSnapshots[T any](csvDir, outDir string, convert func(f *frame.Frame, symbol string) []T) (int, error) {
	entries, err := os.ReadDir(csvDir)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		symbol := strings.TrimSuffix(e.Name(), ".csv")

		f, err := LoadCSV(filepath.Join(csvDir, e.Name()))
		if err != nil {
			return written, fmt.Errorf("reading %s: %w", e.Name(), err)
		}

		records := convert(f, symbol)
		if len(records) == 0 {
			continue
		}

		path := filepath.Join(outDir, symbol+".parquet")
		if err := writeParquetFile(path, records); err != nil {
			return written, fmt.Errorf("writing snapshot for %s: %w", symbol, err)
		}
		written++
	}
	return written, nil
}

func stockSnapshotRows(f *frame.Frame, symbol string) []StockSnapshotRecord {
	sorted := frame.Concat(f)
	sorted.DedupSortByDate("DATE", true)

	dateIdx := sorted.Col("DATE")
	symbolIdx := sorted.Resolve("SYMBOL")
	seriesIdx := sorted.Resolve("SERIES")
	openIdx := sorted.Resolve("OPEN")
	highIdx := sorted.Resolve("HIGH")
	lowIdx := sorted.Resolve("LOW")
	prevCloseIdx := sorted.Resolve("PREVCLOSE")
	ltpIdx := sorted.Resolve("LTP")
	closeIdx := sorted.Resolve("CLOSE")
	vwapIdx := sorted.Resolve("VWAP")
	volumeIdx := sorted.Resolve("VOLUME")
	valueIdx := sorted.Resolve("VALUE")
	tradesIdx := sorted.Resolve("NOOFTRADES", "TRADES")

	records := make([]StockSnapshotRecord, 0, sorted.NumRows())
	for i := 0; i < sorted.NumRows(); i++ {
		sym := sorted.Cell(i, symbolIdx)
		if sym == "" {
			sym = symbol
		}
		series := sorted.Cell(i, seriesIdx)
		if series == "" {
			series = "EQ"
		}
		records = append(records, StockSnapshotRecord{
			Date:      sorted.Cell(i, dateIdx),
			Symbol:    sym,
			Series:    series,
			Open:      floatPtr(sorted.Cell(i, openIdx)),
			High:      floatPtr(sorted.Cell(i, highIdx)),
			Low:       floatPtr(sorted.Cell(i, lowIdx)),
			PrevClose: floatPtr(sorted.Cell(i, prevCloseIdx)),
			LTP:       floatPtr(sorted.Cell(i, ltpIdx)),
			Close:     floatPtr(sorted.Cell(i, closeIdx)),
			VWAP:      floatPtr(sorted.Cell(i, vwapIdx)),
			Volume:    intPtr(sorted.Cell(i, volumeIdx)),
			Value:     floatPtr(sorted.Cell(i, valueIdx)),
			Trades:    intPtr(sorted.Cell(i, tradesIdx)),
		})
	}
	return records
}

func indexSnapshotRows(f *frame.Frame, symbol string) []IndexSnapshotRecord {
	dateIdx := f.Resolve("Date", "TIMESTAMP")
	if dateIdx < 0 {
		return nil
	}
	nameIdx := f.Resolve("INDEX_NAME")
	openIdx := f.Resolve("OPEN_INDEX_VAL", "Open")
	highIdx := f.Resolve("HIGH_INDEX_VAL", "High")
	lowIdx := f.Resolve("LOW_INDEX_VAL", "Low")
	closeIdx := f.Resolve("Close", "CLOSE_INDEX_VAL")
	volumeIdx := f.Resolve("TRADED_QTY", "Volume")
	turnoverIdx := f.Resolve("TURN_OVER", "Turnover")

	records := make([]IndexSnapshotRecord, 0, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		day, ok := frame.ParseDate(f.Cell(i, dateIdx))
		if !ok {
			continue
		}
		name := f.Cell(i, nameIdx)
		if name == "" {
			name = symbol
		}
		records = append(records, IndexSnapshotRecord{
			Date:     day.Format(frame.DateLayout),
			Symbol:   name,
			Open:     floatPtr(f.Cell(i, openIdx)),
			High:     floatPtr(f.Cell(i, highIdx)),
			Low:      floatPtr(f.Cell(i, lowIdx)),
			Close:    floatPtr(f.Cell(i, closeIdx)),
			Volume:   intPtr(f.Cell(i, volumeIdx)),
			Turnover: floatPtr(f.Cell(i, turnoverIdx)),
		})
	}
	return records
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func floatPtr(s string) *float64 {
	cleaned := frame.CleanNumeric(s)
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

func intPtr(s string) *int64 {
	cleaned := frame.CleanNumeric(s)
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	n := int64(v)
	return &n
}
