package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"nsedata/internal/frame"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// DB wraps the embedded SQLite price database. During fetch planning it is
// only read (max-date and universe lookups); writes happen in the separate
// offline load step (cmd/load-db, cmd/populate-universe).
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dbPath.
func Open(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stock_prices (
		date       TEXT NOT NULL,
		symbol     TEXT NOT NULL,
		series     TEXT NOT NULL DEFAULT 'EQ',
		open       REAL,
		high       REAL,
		low        REAL,
		prev_close REAL,
		ltp        REAL,
		close      REAL,
		vwap       REAL,
		volume     INTEGER,
		value      REAL,
		trades     INTEGER,
		PRIMARY KEY (date, symbol, series)
	)`,
	`CREATE TABLE IF NOT EXISTS index_prices (
		date     TEXT NOT NULL,
		symbol   TEXT NOT NULL,
		open     REAL,
		high     REAL,
		low      REAL,
		close    REAL,
		volume   INTEGER,
		turnover REAL,
		PRIMARY KEY (date, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS universe_stocks (
		company_name TEXT NOT NULL,
		industry     TEXT,
		symbol       TEXT NOT NULL,
		exchange     TEXT NOT NULL DEFAULT 'NSE',
		code         TEXT,
		PRIMARY KEY (symbol, exchange)
	)`,
	`CREATE TABLE IF NOT EXISTS universe_indexes (
		name     TEXT NOT NULL,
		exchange TEXT NOT NULL DEFAULT 'NSE',
		type     TEXT,
		PRIMARY KEY (name, exchange)
	)`,
}

// EnsureSchema creates the price and universe tables when missing.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Watermark lookups
// ---------------------------------------------------------------------------

// MaxStockDate returns the latest persisted date for symbol in
// stock_prices, with ok false when the symbol has no rows.
func (d *DB) MaxStockDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	return d.maxDate(ctx, `SELECT max(date) FROM stock_prices WHERE symbol = ?`, symbol)
}

// MaxIndexDate returns the latest persisted date for an index in
// index_prices, with ok false when the index has no rows.
func (d *DB) MaxIndexDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	return d.maxDate(ctx, `SELECT max(date) FROM index_prices WHERE symbol = ?`, symbol)
}

func (d *DB) maxDate(ctx context.Context, query, symbol string) (time.Time, bool, error) {
	var s sql.NullString
	if err := d.db.QueryRowContext(ctx, query, symbol).Scan(&s); err != nil {
		return time.Time{}, false, err
	}
	if !s.Valid {
		return time.Time{}, false, nil
	}
	t, ok := frame.ParseDate(s.String)
	if !ok {
		return time.Time{}, false, fmt.Errorf("unparseable max date %q for %s", s.String, symbol)
	}
	return t, true, nil
}

// ---------------------------------------------------------------------------
// Universe queries
// ---------------------------------------------------------------------------

// UniverseSymbols lists the distinct stock symbols for an exchange.
func (d *DB) UniverseSymbols(ctx context.Context, exchange string) ([]string, error) {
	return d.listStrings(ctx,
		`SELECT DISTINCT symbol FROM universe_stocks WHERE exchange = ? ORDER BY symbol`, exchange)
}

// UniverseIndices lists the distinct index names for an exchange, filtered
// by type when indexType is non-empty.
func (d *DB) UniverseIndices(ctx context.Context, exchange, indexType string) ([]string, error) {
	if indexType != "" {
		return d.listStrings(ctx,
			`SELECT DISTINCT name FROM universe_indexes WHERE exchange = ? AND type = ? ORDER BY name`,
			exchange, indexType)
	}
	return d.listStrings(ctx,
		`SELECT DISTINCT name FROM universe_indexes WHERE exchange = ? ORDER BY name`, exchange)
}

func (d *DB) listStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PopulateUniverseStocks upserts universe_stocks from a stock-list CSV
// (Company Name, Industry, Symbol, ISIN Code columns) and returns the
// number of rows written.
func (d *DB) PopulateUniverseStocks(ctx context.Context, csvPath, exchange string) (int, error) {
	f, err := LoadCSV(csvPath)
	if err != nil {
		return 0, err
	}

	nameIdx := f.Resolve("Company Name")
	industryIdx := f.Resolve("Industry")
	symbolIdx := f.Resolve("Symbol")
	codeIdx := f.Resolve("ISIN Code", "Code")
	if symbolIdx < 0 {
		return 0, fmt.Errorf("%s: no Symbol column", csvPath)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO universe_stocks (company_name, industry, symbol, exchange, code)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for i := 0; i < f.NumRows(); i++ {
		sym := f.Cell(i, symbolIdx)
		if sym == "" {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			f.Cell(i, nameIdx), nullText(f.Cell(i, industryIdx)), sym, exchange,
			nullText(f.Cell(i, codeIdx)))
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, tx.Commit()
}

// PopulateUniverseIndices upserts universe_indexes from an index-list CSV
// (Index, Exchange, Type columns) and returns the number of rows written.
func (d *DB) PopulateUniverseIndices(ctx context.Context, csvPath, exchange string) (int, error) {
	f, err := LoadCSV(csvPath)
	if err != nil {
		return 0, err
	}

	nameIdx := f.Resolve("Index", "Name")
	exchangeIdx := f.Resolve("Exchange")
	typeIdx := f.Resolve("Type")
	if nameIdx < 0 {
		return 0, fmt.Errorf("%s: no Index column", csvPath)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO universe_indexes (name, exchange, type) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for i := 0; i < f.NumRows(); i++ {
		name := f.Cell(i, nameIdx)
		if name == "" {
			continue
		}
		ex := exchange
		if exchangeIdx >= 0 && f.Cell(i, exchangeIdx) != "" {
			ex = f.Cell(i, exchangeIdx)
		}
		if _, err := stmt.ExecContext(ctx, name, ex, nullText(f.Cell(i, typeIdx))); err != nil {
			return 0, err
		}
		n++
	}
	return n, tx.Commit()
}

// ---------------------------------------------------------------------------
// Offline history load (CSV archive → price tables)
// ---------------------------------------------------------------------------

// LoadStockHistory inserts rows from a canonical per-symbol CSV frame into
// stock_prices, skipping rows at or before the symbol's current max date.
// Returns the number of rows inserted.
func (d *DB) LoadStockHistory(ctx context.Context, f *frame.Frame, symbol string) (int, error) {
	watermark, haveWatermark, err := d.MaxStockDate(ctx, symbol)
	if err != nil {
		return 0, err
	}

	dateIdx := f.Resolve("DATE", "Date")
	if dateIdx < 0 {
		return 0, fmt.Errorf("stock history for %s: no DATE column", symbol)
	}
	seriesIdx := f.Resolve("SERIES")
	openIdx := f.Resolve("OPEN")
	highIdx := f.Resolve("HIGH")
	lowIdx := f.Resolve("LOW")
	prevCloseIdx := f.Resolve("PREVCLOSE")
	ltpIdx := f.Resolve("LTP")
	closeIdx := f.Resolve("CLOSE")
	vwapIdx := f.Resolve("VWAP")
	volumeIdx := f.Resolve("VOLUME")
	valueIdx := f.Resolve("VALUE")
	tradesIdx := f.Resolve("NOOFTRADES", "TRADES")

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO stock_prices
		 (date, symbol, series, open, high, low, prev_close, ltp, close, vwap, volume, value, trades)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for i := 0; i < f.NumRows(); i++ {
		day, ok := frame.ParseDate(f.Cell(i, dateIdx))
		if !ok {
			continue
		}
		if haveWatermark && !day.After(watermark) {
			continue
		}
		series := f.Cell(i, seriesIdx)
		if series == "" {
			series = "EQ"
		}
		_, err := stmt.ExecContext(ctx,
			day.Format(frame.DateLayout), symbol, series,
			nullFloat(f.Cell(i, openIdx)), nullFloat(f.Cell(i, highIdx)),
			nullFloat(f.Cell(i, lowIdx)), nullFloat(f.Cell(i, prevCloseIdx)),
			nullFloat(f.Cell(i, ltpIdx)), nullFloat(f.Cell(i, closeIdx)),
			nullFloat(f.Cell(i, vwapIdx)), nullInt(f.Cell(i, volumeIdx)),
			nullFloat(f.Cell(i, valueIdx)), nullInt(f.Cell(i, tradesIdx)))
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, tx.Commit()
}

// LoadIndexHistory inserts rows from an index history CSV frame into
// index_prices, skipping rows at or before the index's current max date.
// Returns the number of rows inserted.
func (d *DB) LoadIndexHistory(ctx context.Context, f *frame.Frame, symbol string) (int, error) {
	watermark, haveWatermark, err := d.MaxIndexDate(ctx, symbol)
	if err != nil {
		return 0, err
	}

	dateIdx := f.Resolve("Date", "TIMESTAMP")
	if dateIdx < 0 {
		return 0, fmt.Errorf("index history for %s: no date column", symbol)
	}
	nameIdx := f.Resolve("INDEX_NAME")
	openIdx := f.Resolve("OPEN_INDEX_VAL", "Open")
	highIdx := f.Resolve("HIGH_INDEX_VAL", "High")
	lowIdx := f.Resolve("LOW_INDEX_VAL", "Low")
	closeIdx := f.Resolve("Close", "CLOSE_INDEX_VAL")
	volumeIdx := f.Resolve("TRADED_QTY", "Volume")
	turnoverIdx := f.Resolve("TURN_OVER", "Turnover")

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO index_prices
		 (date, symbol, open, high, low, close, volume, turnover)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for i := 0; i < f.NumRows(); i++ {
		day, ok := frame.ParseDate(f.Cell(i, dateIdx))
		if !ok {
			continue
		}
		if haveWatermark && !day.After(watermark) {
			continue
		}
		name := symbol
		if nameIdx >= 0 && f.Cell(i, nameIdx) != "" {
			name = f.Cell(i, nameIdx)
		}
		_, err := stmt.ExecContext(ctx,
			day.Format(frame.DateLayout), name,
			nullFloat(f.Cell(i, openIdx)), nullFloat(f.Cell(i, highIdx)),
			nullFloat(f.Cell(i, lowIdx)), nullFloat(f.Cell(i, closeIdx)),
			nullInt(f.Cell(i, volumeIdx)), nullFloat(f.Cell(i, turnoverIdx)))
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, tx.Commit()
}

// ---------------------------------------------------------------------------
// Null helpers (empty cell → SQL NULL)
// ---------------------------------------------------------------------------

func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(s string) any {
	cleaned := frame.CleanNumeric(s)
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return v
}

func nullInt(s string) any {
	cleaned := frame.CleanNumeric(s)
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return int64(v)
}
