package grid

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// WriteProfileCSV writes a profile as a wide CSV: a "timestamp" column
// followed by one column per id, ids ascending.
func (p *Profile) WriteProfileCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("grid: create %s: %w", path, err)
	}
	defer f.Close()

	ids := p.ColumnIDs()
	header := make([]string, 0, len(ids)+1)
	header = append(header, "timestamp")
	for _, id := range ids {
		header = append(header, strconv.Itoa(id))
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("grid: write %s: %w", path, err)
	}
	for i, ts := range p.Timestamps {
		row := make([]string, 0, len(header))
		row = append(row, ts)
		for _, id := range ids {
			row = append(row, strconv.FormatFloat(p.Values[id][i], 'f', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("grid: write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("grid: write %s: %w", path, err)
	}
	return f.Close()
}

// ReadProfileCSV loads a profile written by WriteProfileCSV.
func ReadProfileCSV(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grid: open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("grid: read %s: %w", path, err)
	}
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != "timestamp" {
		return nil, fmt.Errorf("grid: %s: first column must be \"timestamp\"", path)
	}

	ids := make([]int, 0, len(records[0])-1)
	for _, name := range records[0][1:] {
		id, err := strconv.Atoi(name)
		if err != nil {
			return nil, fmt.Errorf("grid: %s: bad column id %q: %w", path, name, err)
		}
		ids = append(ids, id)
	}

	timestamps := make([]string, 0, len(records)-1)
	values := make(map[int][]float64, len(ids))
	for _, id := range ids {
		values[id] = make([]float64, 0, len(records)-1)
	}
	for _, row := range records[1:] {
		if len(row) != len(ids)+1 {
			return nil, fmt.Errorf("grid: %s: row has %d cells, want %d", path, len(row), len(ids)+1)
		}
		timestamps = append(timestamps, row[0])
		for i, id := range ids {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("grid: %s: bad value %q: %w", path, row[i+1], err)
			}
			values[id] = append(values[id], v)
		}
	}

	profile := NewProfile(timestamps)
	for _, id := range ids {
		if err := profile.SetColumn(id, values[id]); err != nil {
			return nil, err
		}
	}
	return profile, nil
}
