package report

import (
	"strings"
	"testing"
	"time"

	"nsedata/internal/frame"
)

func TestSummarize(t *testing.T) {
	f := frame.New("DATE", "CLOSE", "VOLUME")
	f.Append([]string{"2024-01-03", "102", "6000"})
	f.Append([]string{"2024-01-02", "100", "4000"})
	f.Append([]string{"bad date", "", ""})

	s := Summarize(f)

	if s.Rows != 3 {
		t.Errorf("Rows = %d, want 3", s.Rows)
	}
	if !s.HasDates {
		t.Fatal("HasDates = false")
	}
	if want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC); !s.MinDate.Equal(want) {
		t.Errorf("MinDate = %v, want %v", s.MinDate, want)
	}
	if want := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC); !s.MaxDate.Equal(want) {
		t.Errorf("MaxDate = %v, want %v", s.MaxDate, want)
	}
	if !s.HasClose || s.AvgClose != 101 {
		t.Errorf("AvgClose = %v (has %v), want 101", s.AvgClose, s.HasClose)
	}
	if !s.HasVolume || s.AvgVolume != 5000 {
		t.Errorf("AvgVolume = %v (has %v), want 5000", s.AvgVolume, s.HasVolume)
	}

	str := s.String()
	if !strings.Contains(str, "2024-01-02 to 2024-01-03") {
		t.Errorf("String() = %q, missing date range", str)
	}
	if !strings.Contains(str, "avg close 101.00") {
		t.Errorf("String() = %q, missing avg close", str)
	}
}

func TestSummarizeIndexColumns(t *testing.T) {
	f := frame.New("Date", "Close", "TRADED_QTY")
	f.Append([]string{"2024-01-02", "21500.5", "1000"})

	s := Summarize(f)
	if !s.HasDates || !s.HasClose || !s.HasVolume {
		t.Errorf("index schema not resolved: %+v", s)
	}
}

func TestSummarizeNil(t *testing.T) {
	s := Summarize(nil)
	if s.Rows != 0 || s.HasDates || s.HasClose {
		t.Errorf("nil frame summary = %+v, want zero value", s)
	}
}

func TestBatchSummary(t *testing.T) {
	var b BatchSummary
	b.Success()
	b.Success()
	b.Failure("RELIANCE")

	if b.Total != 3 || b.Succeeded != 2 {
		t.Errorf("tally = %d/%d, want 2/3", b.Succeeded, b.Total)
	}
	if got := b.SuccessRate(); got < 0.66 || got > 0.67 {
		t.Errorf("SuccessRate = %v, want ~0.667", got)
	}
	if !strings.Contains(b.String(), "RELIANCE") {
		t.Errorf("String() = %q, should name the failed symbol", b.String())
	}

	var empty BatchSummary
	if empty.SuccessRate() != 0 {
		t.Errorf("empty SuccessRate = %v, want 0", empty.SuccessRate())
	}
}

func TestFormatInt(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234567, "-1,234,567"},
	}
	for _, c := range cases {
		if got := FormatInt(c.in); got != c.want {
			t.Errorf("FormatInt(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatTurnover(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{500, "500"},
		{1500, "1.5K"},
		{2500000, "2.5M"},
		{3100000000, "3.1B"},
	}
	for _, c := range cases {
		if got := FormatTurnover(c.in); got != c.want {
			t.Errorf("FormatTurnover(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
