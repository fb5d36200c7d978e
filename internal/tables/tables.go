// Package tables holds the flat-table type shared by every pipeline stage and
// its CSV wire format. Column names and ordering are a fixed contract with
// the external optimizer; mismatches surface immediately on read.
package tables

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Table is a named flat table with a fixed header.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// New allocates an empty table.
func New(name string, header ...string) *Table {
	return &Table{Name: name, Header: header}
}

// Append adds one row; the cell count must match the header.
func (t *Table) Append(cells ...string) error {
	if len(cells) != len(t.Header) {
		return fmt.Errorf("tables: %s row has %d cells, want %d", t.Name, len(cells), len(t.Header))
	}
	t.Rows = append(t.Rows, cells)
	return nil
}

// MustAppend is Append for rows whose arity is fixed at the call site.
func (t *Table) MustAppend(cells ...string) {
	if err := t.Append(cells...); err != nil {
		panic(err)
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Cell returns the value at (row, column name).
func (t *Table) Cell(row int, column string) (string, error) {
	for i, name := range t.Header {
		if name == column {
			return t.Rows[row][i], nil
		}
	}
	return "", fmt.Errorf("tables: %s has no column %q", t.Name, column)
}

// ColumnIndex returns the position of a column in the header.
func (t *Table) ColumnIndex(column string) (int, error) {
	for i, name := range t.Header {
		if name == column {
			return i, nil
		}
	}
	return 0, fmt.Errorf("tables: %s has no column %q", t.Name, column)
}

// WriteCSV writes the table to dir as "<name>.csv".
func (t *Table) WriteCSV(dir string) error {
	path := filepath.Join(dir, t.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tables: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("tables: write %s: %w", path, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("tables: write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("tables: write %s: %w", path, err)
	}
	return f.Close()
}

// ReadCSV loads a table, failing fast when the file's header does not match
// the expected one exactly (names and order).
func ReadCSV(path string, header ...string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tables: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tables: read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("tables: %s is empty, expected header %v", path, header)
	}
	if !equal(records[0], header) {
		return nil, fmt.Errorf("tables: %s header %v does not match expected %v", path, records[0], header)
	}
	name := filepath.Base(path)
	name = name[:len(name)-len(filepath.Ext(name))]
	return &Table{Name: name, Header: header, Rows: records[1:]}, nil
}

func equal(a, b []string) bool {
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

// Float renders a float in the canonical cell format (no exponent).
func Float(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Int renders an integer cell.
func Int(v int) string { return strconv.Itoa(v) }

// ParseFloat parses a float cell.
func ParseFloat(cell string) (float64, error) {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("tables: bad float %q: %w", cell, err)
	}
	return v, nil
}

// ParseInt parses an integer cell.
func ParseInt(cell string) (int, error) {
	v, err := strconv.Atoi(cell)
	if err != nil {
		return 0, fmt.Errorf("tables: bad int %q: %w", cell, err)
	}
	return v, nil
}
