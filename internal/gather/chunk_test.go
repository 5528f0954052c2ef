package gather

import (
	"context"
	"errors"
	"testing"
	"time"

	"nsedata/internal/frame"
)

// fakeSecondary records the windows it was asked for and answers from a
// scripted list.
type fakeSecondary struct {
	windows [][2]string
	answer  func(call int, fromDate, toDate string) (*frame.Frame, error)
}

func (f *fakeSecondary) fetch(ctx context.Context, symbol, fromDate, toDate string) (*frame.Frame, error) {
	call := len(f.windows)
	f.windows = append(f.windows, [2]string{fromDate, toDate})
	return f.answer(call, fromDate, toDate)
}

func secondaryRows(dates ...string) *frame.Frame {
	f := frame.New("Date", "ClosePrice")
	for _, d := range dates {
		f.Append([]string{d, "100"})
	}
	return f
}

func TestFetchChunkedSplitsWindows(t *testing.T) {
	fake := &fakeSecondary{
		answer: func(call int, fromDate, toDate string) (*frame.Frame, error) {
			return secondaryRows(fromDate), nil
		},
	}

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC) // 130 days
	out := FetchChunked(context.Background(), fake.fetch, "TCS", from, to,
		Options{ChunkDays: 60, Timeout: time.Second}, nil)

	want := [][2]string{
		{"01-01-2024", "29-02-2024"},
		{"01-03-2024", "29-04-2024"},
		{"30-04-2024", "09-05-2024"},
	}
	if len(fake.windows) != len(want) {
		t.Fatalf("windows = %v, want %v", fake.windows, want)
	}
	for i := range want {
		if fake.windows[i] != want[i] {
			t.Errorf("window %d = %v, want %v", i, fake.windows[i], want[i])
		}
	}
	if out.NumRows() != 3 {
		t.Errorf("rows = %d, want one per chunk", out.NumRows())
	}
}

func TestFetchChunkedInvertedRange(t *testing.T) {
	fake := &fakeSecondary{
		answer: func(int, string, string) (*frame.Frame, error) {
			t.Fatal("fetch called for inverted range")
			return nil, nil
		},
	}
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := FetchChunked(context.Background(), fake.fetch, "TCS", from, to, Options{}, nil)
	if out.NumRows() != 0 {
		t.Errorf("rows = %d, want 0", out.NumRows())
	}
	if len(out.Columns()) != len(CanonicalColumns) {
		t.Errorf("columns = %v, want canonical set", out.Columns())
	}
}

func TestFetchChunkedSkipsFailedChunks(t *testing.T) {
	fake := &fakeSecondary{
		answer: func(call int, fromDate, toDate string) (*frame.Frame, error) {
			switch call {
			case 0:
				return nil, errors.New("server error")
			case 1:
				return nil, context.DeadlineExceeded
			default:
				return secondaryRows(fromDate), nil
			}
		},
	}

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC)
	out := FetchChunked(context.Background(), fake.fetch, "TCS", from, to,
		Options{ChunkDays: 10, Timeout: time.Second}, nil)

	if len(fake.windows) != 3 {
		t.Fatalf("calls = %d, want 3 (failures must not abort)", len(fake.windows))
	}
	if out.NumRows() != 1 {
		t.Errorf("rows = %d, want only the surviving chunk's row", out.NumRows())
	}
	if got := out.Cell(0, out.Col(ColDate)); got != "2024-01-21" {
		t.Errorf("surviving date = %q, want 2024-01-21", got)
	}
}

func TestFetchChunkedAllFailed(t *testing.T) {
	fake := &fakeSecondary{
		answer: func(int, string, string) (*frame.Frame, error) {
			return nil, errors.New("down")
		},
	}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	out := FetchChunked(context.Background(), fake.fetch, "TCS", from, to, Options{}, nil)
	if out.NumRows() != 0 {
		t.Errorf("rows = %d, want 0 for a fully failed range", out.NumRows())
	}
}
