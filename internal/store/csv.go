// Package store bridges the gather pipeline and physical storage: the
// per-symbol CSV archive, the embedded SQLite price database, and Parquet
// snapshot exports for the dashboard.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"nsedata/internal/frame"
)

// LoadCSV reads a header-rowed CSV file into a Frame. A missing file
// surfaces as fs.ErrNotExist; other read or parse failures return an error
// the caller is expected to treat as "absent". An empty file yields an
// empty Frame.
func LoadCSV(path string) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return frame.New(), nil
	}

	out := frame.New(records[0]...)
	for _, rec := range records[1:] {
		out.Append(rec)
	}
	return out, nil
}

// SaveCSV rewrites path with the full table, header row first. The file is
// always replaced wholesale, never appended to. Parent directories are
// created as needed.
func SaveCSV(f *frame.Frame, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)
	if err := w.Write(f.Columns()); err != nil {
		out.Close()
		return err
	}
	for i := 0; i < f.NumRows(); i++ {
		if err := w.Write(f.Row(i)); err != nil {
			out.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
