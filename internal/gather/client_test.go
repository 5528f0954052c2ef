package gather

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nsedata/internal/frame"
	"nsedata/internal/store"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type rangeCall struct {
	from, to string
}

// fakePrimary scripts the one-shot source and records requested ranges.
type fakePrimary struct {
	calls  []rangeCall
	answer func(call int, from, to time.Time) (*frame.Frame, error)
}

func (p *fakePrimary) fetch(ctx context.Context, symbol string, from, to time.Time, series string) (*frame.Frame, error) {
	call := len(p.calls)
	p.calls = append(p.calls, rangeCall{from.Format(frame.DateLayout), to.Format(frame.DateLayout)})
	return p.answer(call, from, to)
}

func primaryRows(closes map[string]string) *frame.Frame {
	f := frame.New("DATE", "CLOSE")
	for date, close := range closes {
		f.Append([]string{date, close})
	}
	return f
}

// primaryForRange answers every call with one row per day in the requested
// range, closing at the given value.
func primaryForRange(close string) func(int, time.Time, time.Time) (*frame.Frame, error) {
	return func(_ int, from, to time.Time) (*frame.Frame, error) {
		f := frame.New("DATE", "CLOSE")
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			f.Append([]string{d.Format(frame.DateLayout), close})
		}
		return f, nil
	}
}

type fakeWatermark struct {
	date time.Time
	ok   bool
	err  error
}

func (w fakeWatermark) MaxStockDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	return w.date, w.ok, w.err
}

func day(s string) time.Time {
	t, ok := frame.ParseDate(s)
	if !ok {
		panic("bad test date " + s)
	}
	return t
}

func newTestClient(p *fakePrimary, s SecondaryFetch, db Watermarker) *Client {
	if s == nil {
		s = func(ctx context.Context, symbol, fromDate, toDate string) (*frame.Frame, error) {
			return nil, errors.New("secondary should not be called")
		}
	}
	c := NewClient(p.fetch, s, nil, db, Options{Timeout: time.Second})
	c.now = func() time.Time { return day("2024-06-14") }
	return c
}

func datesOf(t *testing.T, f *frame.Frame) []string {
	t.Helper()
	ci := f.Col(ColDate)
	if ci < 0 {
		t.Fatal("no DATE column")
	}
	out := make([]string, 0, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		out = append(out, f.Cell(i, ci))
	}
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// DownloadStockData
// ---------------------------------------------------------------------------

func TestDownloadFullRangeWhenNothingExists(t *testing.T) {
	p := &fakePrimary{answer: primaryForRange("100")}
	c := newTestClient(p, nil, nil)
	path := filepath.Join(t.TempDir(), "TCS.csv")

	got, err := c.DownloadStockData(context.Background(), "TCS", day("2024-01-02"), day("2024-01-04"), path)
	if err != nil {
		t.Fatalf("DownloadStockData: %v", err)
	}

	if len(p.calls) != 1 || p.calls[0] != (rangeCall{"2024-01-02", "2024-01-04"}) {
		t.Fatalf("primary calls = %v, want the full range once", p.calls)
	}
	// Persisted order is descending by date.
	want := []string{"2024-01-04", "2024-01-03", "2024-01-02"}
	if !sameStrings(datesOf(t, got), want) {
		t.Errorf("dates = %v, want %v", datesOf(t, got), want)
	}

	saved, err := store.LoadCSV(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !sameStrings(datesOf(t, saved), want) {
		t.Errorf("saved dates = %v, want %v", datesOf(t, saved), want)
	}
}

func TestDownloadBackfillsAndExtendsAroundFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TCS.csv")

	existing := frame.New("DATE", "CLOSE")
	existing.Append([]string{"2024-01-03", "old3"})
	existing.Append([]string{"2024-01-02", "old2"})
	if err := store.SaveCSV(existing, path); err != nil {
		t.Fatal(err)
	}

	p := &fakePrimary{answer: primaryForRange("new")}
	c := newTestClient(p, nil, nil)

	got, err := c.DownloadStockData(context.Background(), "TCS", day("2024-01-01"), day("2024-01-04"), path)
	if err != nil {
		t.Fatalf("DownloadStockData: %v", err)
	}

	wantCalls := []rangeCall{
		{"2024-01-01", "2024-01-01"}, // backfill up to the day before the file minimum
		{"2024-01-04", "2024-01-04"}, // extend from the day after the file maximum
	}
	if len(p.calls) != 2 || p.calls[0] != wantCalls[0] || p.calls[1] != wantCalls[1] {
		t.Fatalf("primary calls = %v, want %v", p.calls, wantCalls)
	}

	wantDates := []string{"2024-01-04", "2024-01-03", "2024-01-02", "2024-01-01"}
	if !sameStrings(datesOf(t, got), wantDates) {
		t.Errorf("merged dates = %v, want %v", datesOf(t, got), wantDates)
	}
	// Untouched middle rows keep their original cells.
	ci := got.Col(ColClose)
	if v := got.Cell(1, ci); v != "old3" {
		t.Errorf("kept row close = %q, want old3", v)
	}
}

func TestDownloadContinuesFromDatabaseWatermark(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TCS.csv")

	existing := frame.New("DATE", "CLOSE")
	existing.Append([]string{"2024-01-02", "a"})
	if err := store.SaveCSV(existing, path); err != nil {
		t.Fatal(err)
	}

	// The database has rows past the file, so fetching resumes after it.
	p := &fakePrimary{answer: primaryForRange("new")}
	c := newTestClient(p, nil, fakeWatermark{date: day("2024-01-03"), ok: true})

	_, err := c.DownloadStockData(context.Background(), "TCS", day("2024-01-01"), day("2024-01-05"), path)
	if err != nil {
		t.Fatalf("DownloadStockData: %v", err)
	}

	wantCalls := []rangeCall{
		{"2024-01-01", "2024-01-01"},
		{"2024-01-04", "2024-01-05"}, // after the database watermark, not the file max
	}
	if len(p.calls) != 2 || p.calls[0] != wantCalls[0] || p.calls[1] != wantCalls[1] {
		t.Fatalf("primary calls = %v, want %v", p.calls, wantCalls)
	}
}

func TestDownloadSkipsWhenUpToDateForToday(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TCS.csv")

	existing := frame.New("DATE", "CLOSE")
	existing.Append([]string{"2024-06-14", "today"})
	existing.Append([]string{"2024-06-13", "yesterday"})
	if err := store.SaveCSV(existing, path); err != nil {
		t.Fatal(err)
	}

	p := &fakePrimary{answer: func(int, time.Time, time.Time) (*frame.Frame, error) {
		return nil, errors.New("must not fetch")
	}}
	c := newTestClient(p, nil, nil) // now() is 2024-06-14

	got, err := c.DownloadStockData(context.Background(), "TCS", day("2024-01-01"), day("2024-06-14"), path)
	if err != nil {
		t.Fatalf("DownloadStockData: %v", err)
	}
	if len(p.calls) != 0 {
		t.Fatalf("primary calls = %v, want none when file already has today", p.calls)
	}
	if got.NumRows() != 2 {
		t.Errorf("rows = %d, want the existing data unchanged", got.NumRows())
	}
}

func TestDownloadNoGapsReturnsExistingWithoutRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TCS.csv")

	existing := frame.New("DATE", "CLOSE")
	existing.Append([]string{"2024-01-05", "a"})
	existing.Append([]string{"2024-01-02", "b"})
	if err := store.SaveCSV(existing, path); err != nil {
		t.Fatal(err)
	}
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	p := &fakePrimary{answer: func(int, time.Time, time.Time) (*frame.Frame, error) {
		return nil, errors.New("must not fetch")
	}}
	c := newTestClient(p, nil, nil)

	got, err := c.DownloadStockData(context.Background(), "TCS", day("2024-01-02"), day("2024-01-05"), path)
	if err != nil {
		t.Fatalf("DownloadStockData: %v", err)
	}
	if len(p.calls) != 0 {
		t.Fatalf("primary calls = %v, want none when the file covers the range", p.calls)
	}
	if got.NumRows() != 2 {
		t.Errorf("rows = %d, want 2", got.NumRows())
	}

	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size() {
		t.Error("file was rewritten although nothing was fetched")
	}
}

func TestDownloadIdempotent(t *testing.T) {
	p := &fakePrimary{answer: primaryForRange("100")}
	c := newTestClient(p, nil, nil)
	path := filepath.Join(t.TempDir(), "TCS.csv")

	first, err := c.DownloadStockData(context.Background(), "TCS", day("2024-01-02"), day("2024-01-04"), path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := c.DownloadStockData(context.Background(), "TCS", day("2024-01-02"), day("2024-01-04"), path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(p.calls) != 1 {
		t.Errorf("primary calls = %d, want only the first run to fetch", len(p.calls))
	}
	if !sameStrings(datesOf(t, first), datesOf(t, second)) {
		t.Errorf("second run dates %v differ from first %v", datesOf(t, second), datesOf(t, first))
	}
}

func TestDownloadNoDataErrorSkipsFallback(t *testing.T) {
	p := &fakePrimary{answer: func(int, time.Time, time.Time) (*frame.Frame, error) {
		return nil, fmt.Errorf("lookup failed: no CH_TIMESTAMP in response")
	}}
	secondaryCalls := 0
	secondary := func(ctx context.Context, symbol, fromDate, toDate string) (*frame.Frame, error) {
		secondaryCalls++
		return nil, errors.New("down")
	}
	c := newTestClient(p, secondary, nil)
	path := filepath.Join(t.TempDir(), "NEWLISTING.csv")

	got, err := c.DownloadStockData(context.Background(), "NEWLISTING", day("2019-01-01"), day("2019-12-31"), path)
	if err != nil {
		t.Fatalf("DownloadStockData: %v", err)
	}
	if secondaryCalls != 0 {
		t.Errorf("secondary calls = %d, want none for a no-data range", secondaryCalls)
	}
	if got.NumRows() != 0 {
		t.Errorf("rows = %d, want 0", got.NumRows())
	}
}

func TestDownloadTimeoutFallsBackToSecondary(t *testing.T) {
	p := &fakePrimary{answer: func(int, time.Time, time.Time) (*frame.Frame, error) {
		return nil, fmt.Errorf("primary: %w", context.DeadlineExceeded)
	}}
	secondary := func(ctx context.Context, symbol, fromDate, toDate string) (*frame.Frame, error) {
		f := frame.New("Date", "ClosePrice")
		f.Append([]string{fromDate, "55"})
		return f, nil
	}
	c := newTestClient(p, secondary, nil)
	path := filepath.Join(t.TempDir(), "TCS.csv")

	got, err := c.DownloadStockData(context.Background(), "TCS", day("2024-01-02"), day("2024-01-05"), path)
	if err != nil {
		t.Fatalf("DownloadStockData: %v", err)
	}
	if got.NumRows() == 0 {
		t.Fatal("no rows from the secondary fallback")
	}
	if v := got.Cell(0, got.Col(ColClose)); v != "55" {
		t.Errorf("close = %q, want the secondary source's value", v)
	}
}

func TestDownloadDatabaseErrorDegradesToFilePlanning(t *testing.T) {
	p := &fakePrimary{answer: primaryForRange("100")}
	c := newTestClient(p, nil, fakeWatermark{err: errors.New("db locked")})
	path := filepath.Join(t.TempDir(), "TCS.csv")

	got, err := c.DownloadStockData(context.Background(), "TCS", day("2024-01-02"), day("2024-01-03"), path)
	if err != nil {
		t.Fatalf("DownloadStockData: %v", err)
	}
	if len(p.calls) != 1 {
		t.Fatalf("primary calls = %v, want the full range despite the db error", p.calls)
	}
	if got.NumRows() != 2 {
		t.Errorf("rows = %d, want 2", got.NumRows())
	}
}

func TestDownloadDuplicateDatesKeepFetched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TCS.csv")

	existing := frame.New("DATE", "CLOSE")
	existing.Append([]string{"2024-01-02", "stale"})
	if err := store.SaveCSV(existing, path); err != nil {
		t.Fatal(err)
	}

	// The fetched extension re-reports the file's last day with a fresh value.
	p := &fakePrimary{answer: func(_ int, from, to time.Time) (*frame.Frame, error) {
		return primaryRows(map[string]string{
			"2024-01-02": "fresh",
			"2024-01-03": "fresh",
		}), nil
	}}
	c := newTestClient(p, nil, nil)

	got, err := c.DownloadStockData(context.Background(), "TCS", day("2024-01-02"), day("2024-01-03"), path)
	if err != nil {
		t.Fatalf("DownloadStockData: %v", err)
	}
	if got.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2 after dedup", got.NumRows())
	}
	ci := got.Col(ColClose)
	for i := 0; i < got.NumRows(); i++ {
		if got.Cell(i, ci) != "fresh" {
			t.Errorf("row %d close = %q, want the fetched value to win", i, got.Cell(i, ci))
		}
	}
}
