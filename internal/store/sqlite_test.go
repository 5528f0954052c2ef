package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nsedata/internal/frame"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "db", "stock.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return db
}

func stockFrame(rows [][]string) *frame.Frame {
	f := frame.New("DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME", "SERIES")
	for _, r := range rows {
		f.Append(r)
	}
	return f
}

func TestMaxStockDate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, ok, err := db.MaxStockDate(ctx, "TCS"); err != nil || ok {
		t.Fatalf("MaxStockDate on empty table = ok %v err %v, want absent", ok, err)
	}

	f := stockFrame([][]string{
		{"2024-01-02", "100", "101", "99", "100.5", "5000", "EQ"},
		{"2024-01-03", "100.5", "102", "100", "101", "6000", "EQ"},
	})
	n, err := db.LoadStockHistory(ctx, f, "TCS")
	if err != nil {
		t.Fatalf("LoadStockHistory: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted %d rows, want 2", n)
	}

	got, ok, err := db.MaxStockDate(ctx, "TCS")
	if err != nil || !ok {
		t.Fatalf("MaxStockDate = ok %v err %v", ok, err)
	}
	if want := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("max date = %v, want %v", got, want)
	}

	// Another symbol stays independent.
	if _, ok, _ := db.MaxStockDate(ctx, "INFY"); ok {
		t.Error("MaxStockDate for unrelated symbol should be absent")
	}
}

func TestLoadStockHistorySkipsBelowWatermark(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first := stockFrame([][]string{
		{"2024-01-02", "100", "101", "99", "100.5", "5000", "EQ"},
	})
	if _, err := db.LoadStockHistory(ctx, first, "TCS"); err != nil {
		t.Fatal(err)
	}

	// Re-load with the old row plus one new; only the new row lands.
	second := stockFrame([][]string{
		{"2024-01-02", "999", "999", "999", "999", "999", "EQ"},
		{"2024-01-03", "101", "102", "100", "101.5", "6000", "EQ"},
		{"garbage", "1", "1", "1", "1", "1", "EQ"},
	})
	n, err := db.LoadStockHistory(ctx, second, "TCS")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("inserted %d rows, want 1 (watermark skips the replay)", n)
	}
}

func TestLoadStockHistoryNullCells(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	f := stockFrame([][]string{
		{"2024-01-02", "", "—", "99", "1,000.50", "5000", ""},
	})
	if _, err := db.LoadStockHistory(ctx, f, "TCS"); err != nil {
		t.Fatalf("LoadStockHistory with null cells: %v", err)
	}

	got, ok, err := db.MaxStockDate(ctx, "TCS")
	if err != nil || !ok {
		t.Fatalf("MaxStockDate = ok %v err %v", ok, err)
	}
	if want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("max date = %v, want %v", got, want)
	}
}

func TestLoadIndexHistory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	f := frame.New("Date", "INDEX_NAME", "OPEN_INDEX_VAL", "Close", "TRADED_QTY", "TURN_OVER")
	f.Append([]string{"2024-01-02", "NIFTY 50", "21400", "21500.5", "1000", "123.4"})
	f.Append([]string{"2024-01-03", "NIFTY 50", "21500", "21600", "1100", "130.1"})

	n, err := db.LoadIndexHistory(ctx, f, "NIFTY 50")
	if err != nil {
		t.Fatalf("LoadIndexHistory: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted %d rows, want 2", n)
	}

	got, ok, err := db.MaxIndexDate(ctx, "NIFTY 50")
	if err != nil || !ok {
		t.Fatalf("MaxIndexDate = ok %v err %v", ok, err)
	}
	if want := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("max date = %v, want %v", got, want)
	}
}

func TestPopulateUniverse(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	stocksCSV := filepath.Join(dir, "stocks.csv")
	stocks := frame.New("Company Name", "Industry", "Symbol", "ISIN Code")
	stocks.Append([]string{"Tata Consultancy Services", "IT", "TCS", "INE467B01029"})
	stocks.Append([]string{"Infosys", "IT", "INFY", "INE009A01021"})
	stocks.Append([]string{"No symbol row", "X", "", "Y"})
	if err := SaveCSV(stocks, stocksCSV); err != nil {
		t.Fatal(err)
	}

	n, err := db.PopulateUniverseStocks(ctx, stocksCSV, "NSE")
	if err != nil {
		t.Fatalf("PopulateUniverseStocks: %v", err)
	}
	if n != 2 {
		t.Errorf("populated %d stocks, want 2 (blank symbol skipped)", n)
	}

	syms, err := db.UniverseSymbols(ctx, "NSE")
	if err != nil {
		t.Fatalf("UniverseSymbols: %v", err)
	}
	if len(syms) != 2 || syms[0] != "INFY" || syms[1] != "TCS" {
		t.Errorf("symbols = %v, want [INFY TCS] sorted", syms)
	}

	indicesCSV := filepath.Join(dir, "indices.csv")
	indices := frame.New("Index", "Type")
	indices.Append([]string{"NIFTY 50", "broad"})
	indices.Append([]string{"NIFTY BANK", "sectoral"})
	if err := SaveCSV(indices, indicesCSV); err != nil {
		t.Fatal(err)
	}

	if _, err := db.PopulateUniverseIndices(ctx, indicesCSV, "NSE"); err != nil {
		t.Fatalf("PopulateUniverseIndices: %v", err)
	}

	broad, err := db.UniverseIndices(ctx, "NSE", "broad")
	if err != nil {
		t.Fatalf("UniverseIndices: %v", err)
	}
	if len(broad) != 1 || broad[0] != "NIFTY 50" {
		t.Errorf("broad indices = %v, want [NIFTY 50]", broad)
	}

	all, err := db.UniverseIndices(ctx, "NSE", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all indices = %v, want both", all)
	}
}
