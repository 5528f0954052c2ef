// Package frame implements a small ordered-column string table used to
// carry provider responses through normalization, merging, and CSV storage.
// Cells are strings; an empty cell is a null. Keeping the representation
// generic lets unrecognized provider columns survive into the saved file.
package frame

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// Frame is a table of rows under an ordered set of named columns.
type Frame struct {
	cols []string
	rows [][]string
}

// New creates an empty Frame with the given columns.
func New(cols ...string) *Frame {
	return &Frame{cols: append([]string(nil), cols...)}
}

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.cols...)
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	if f == nil {
		return 0
	}
	return len(f.rows)
}

// Append adds a row. Short rows are padded with empty cells; long rows are
// truncated to the column count.
func (f *Frame) Append(row []string) {
	r := make([]string, len(f.cols))
	copy(r, row)
	f.rows = append(f.rows, r)
}

// Row returns the i-th row. The returned slice is owned by the Frame.
func (f *Frame) Row(i int) []string {
	return f.rows[i]
}

// Cell returns the value at row i, column index col.
func (f *Frame) Cell(i, col int) string {
	if col < 0 || col >= len(f.cols) {
		return ""
	}
	return f.rows[i][col]
}

// Col returns the index of the column with the exact given name, or -1.
func (f *Frame) Col(name string) int {
	for i, c := range f.cols {
		if c == name {
			return i
		}
	}
	return -1
}

// Resolve returns the index of the first column matching any of the
// candidate names. Matching is case-insensitive and ignores every
// non-alphanumeric character, so "Turnover (₹ Cr)" matches "turnover".
// Returns -1 when no candidate matches.
func (f *Frame) Resolve(candidates ...string) int {
	normalized := make(map[string]int, len(f.cols))
	for i, c := range f.cols {
		key := foldName(c)
		if _, ok := normalized[key]; !ok {
			normalized[key] = i
		}
	}
	for _, cand := range candidates {
		if i, ok := normalized[foldName(cand)]; ok {
			return i
		}
	}
	return -1
}

// foldName lowercases a column name and strips all non-alphanumerics.
func foldName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Rename changes a column's name in place. Returns false if old is absent.
func (f *Frame) Rename(old, new string) bool {
	i := f.Col(old)
	if i < 0 {
		return false
	}
	f.cols[i] = new
	return true
}

// Drop removes the named columns (and their cells) when present.
func (f *Frame) Drop(names ...string) {
	remove := make(map[string]bool, len(names))
	for _, n := range names {
		remove[n] = true
	}

	var keep []int
	for i, c := range f.cols {
		if !remove[c] {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(f.cols) {
		return
	}

	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = f.cols[i]
	}
	for ri, row := range f.rows {
		nr := make([]string, len(keep))
		for j, i := range keep {
			nr[j] = row[i]
		}
		f.rows[ri] = nr
	}
	f.cols = cols
}

// EnsureColumn appends a column filled with the given value when the column
// is not already present.
func (f *Frame) EnsureColumn(name, fill string) {
	if f.Col(name) >= 0 {
		return
	}
	f.cols = append(f.cols, name)
	for i := range f.rows {
		f.rows[i] = append(f.rows[i], fill)
	}
}

// Reorder rearranges columns so that the preferred names (those present)
// come first in the given order, with the remaining columns appended
// afterward in their original order.
func (f *Frame) Reorder(preferred []string) {
	var order []int
	taken := make(map[int]bool)
	for _, p := range preferred {
		if i := f.Col(p); i >= 0 && !taken[i] {
			order = append(order, i)
			taken[i] = true
		}
	}
	for i := range f.cols {
		if !taken[i] {
			order = append(order, i)
		}
	}

	cols := make([]string, len(order))
	for j, i := range order {
		cols[j] = f.cols[i]
	}
	for ri, row := range f.rows {
		nr := make([]string, len(order))
		for j, i := range order {
			nr[j] = row[i]
		}
		f.rows[ri] = nr
	}
	f.cols = cols
}

// Concat appends frames together, aligning columns by name. Columns absent
// from one input are filled with empty cells in its rows; columns appear in
// first-seen order. Nil and empty inputs are skipped.
func Concat(frames ...*Frame) *Frame {
	var cols []string
	seen := make(map[string]bool)
	for _, f := range frames {
		if f == nil {
			continue
		}
		for _, c := range f.cols {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}

	out := New(cols...)
	for _, f := range frames {
		if f == nil {
			continue
		}
		// Map source column index → output column index.
		idx := make([]int, len(f.cols))
		for i, c := range f.cols {
			idx[i] = out.Col(c)
		}
		for _, row := range f.rows {
			nr := make([]string, len(cols))
			for i, v := range row {
				nr[idx[i]] = v
			}
			out.rows = append(out.rows, nr)
		}
	}
	return out
}

// DedupSortByDate parses the named date column on every row, drops rows
// whose date cannot be parsed, keeps the last occurrence per date, rewrites
// the date cell in canonical YYYY-MM-DD form, and sorts by date in the
// requested direction. Rows from later positions win on duplicate dates, so
// callers control precedence through concatenation order.
func (f *Frame) DedupSortByDate(dateCol string, ascending bool) {
	ci := f.Col(dateCol)
	if ci < 0 {
		f.rows = nil
		return
	}

	type dated struct {
		day time.Time
		row []string
	}
	byDate := make(map[string]dated, len(f.rows))
	for _, row := range f.rows {
		d, ok := ParseDate(row[ci])
		if !ok {
			continue
		}
		row[ci] = d.Format(DateLayout)
		byDate[row[ci]] = dated{day: d, row: row}
	}

	out := make([]dated, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].day.Before(out[j].day)
		}
		return out[i].day.After(out[j].day)
	})

	f.rows = f.rows[:0]
	for _, d := range out {
		f.rows = append(f.rows, d.row)
	}
}

// DateBounds returns the minimum and maximum parseable dates in the named
// column. ok is false when the column is absent or no row has a parseable
// date.
func (f *Frame) DateBounds(dateCol string) (min, max time.Time, ok bool) {
	ci := f.Col(dateCol)
	if ci < 0 {
		return time.Time{}, time.Time{}, false
	}
	for _, row := range f.rows {
		d, parsed := ParseDate(row[ci])
		if !parsed {
			continue
		}
		if !ok || d.Before(min) {
			min = d
		}
		if !ok || d.After(max) {
			max = d
		}
		ok = true
	}
	return min, max, ok
}
