package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"insurance-analytics/models"
)

// CSVExporter writes tabular results as CSV files under a single output
// directory. Writes are deterministic: exporting the same table twice
// produces byte-identical files.
type CSVExporter struct {
	dir string
}

// NewCSVExporter creates the output directory if needed.
func NewCSVExporter(dir string) (*CSVExporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVExporter{dir: dir}, nil
}

// WriteTable writes one table to <dir>/<name>.csv, truncating any previous
// file. The header row always comes first, then rows in table order.
func (e *CSVExporter) WriteTable(table models.Table) error {
	if table.Name == "" {
		return fmt.Errorf("csv: table has no name")
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("csv: table %q has no columns", table.Name)
	}

	path := filepath.Join(e.dir, table.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(table.Columns); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range table.Rows {
		if len(row) != len(table.Columns) {
			_ = f.Close()
			return fmt.Errorf("csv: table %q row has %d fields, want %d", table.Name, len(row), len(table.Columns))
		}
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: flush %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("csv: close %q: %w", path, err)
	}
	return nil
}
