// Package temporal collapses the hourly time axis into representative
// timepoints grouped into timeseries, and expands reduced per-timepoint data
// back to full hourly resolution. The timestamp→timepoint mapping itself is
// supplied as an input; this package only validates and applies it.
package temporal

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"gridswitch/internal/tables"
)

// ErrInconsistentTimeseries is returned when a timeseries maps to more than
// one distinct (period, duration) pair.
var ErrInconsistentTimeseries = errors.New("temporal: inconsistent timeseries")

// Timepoint is one representative hour standing in for one or more
// timestamps.
type Timepoint struct {
	ID           int
	Timestamp    string
	Timeseries   string
	Period       int
	DurationOfTP float64
}

// MappingEntry assigns one timestamp to its timepoint. The full mapping is
// kept in chronological input order.
type MappingEntry struct {
	Timestamp string
	Timepoint int
}

// Mapping is the ordered timestamp→timepoint assignment.
type Mapping []MappingEntry

// Timestamps returns the timestamps in chronological order.
func (m Mapping) Timestamps() []string {
	out := make([]string, len(m))
	for i, e := range m {
		out[i] = e.Timestamp
	}
	return out
}

// Weights returns, for each timepoint, how many timestamps map to it.
func (m Mapping) Weights() map[int]int {
	weights := make(map[int]int)
	for _, e := range m {
		weights[e.Timepoint]++
	}
	return weights
}

// TimeseriesInfo is the derived description of one timeseries.
type TimeseriesInfo struct {
	Name          string
	Period        int
	DurationOfTP  float64
	NumTimepoints int
	Hours         float64
	ScaleToPeriod float64
}

// DeriveTimeseries validates the timeseries→(period, duration) functional
// dependency and computes, for each timeseries, its timepoint count, the
// total real hours mapped to it, and its scale-to-period factor
// hours / (duration × num_timepoints). Timeseries appear in first-seen order.
func DeriveTimeseries(timepoints []Timepoint, mapping Mapping) ([]TimeseriesInfo, error) {
	byName := make(map[string]*TimeseriesInfo)
	var order []string
	for _, tp := range timepoints {
		info, ok := byName[tp.Timeseries]
		if !ok {
			info = &TimeseriesInfo{Name: tp.Timeseries, Period: tp.Period, DurationOfTP: tp.DurationOfTP}
			byName[tp.Timeseries] = info
			order = append(order, tp.Timeseries)
		} else if info.Period != tp.Period || info.DurationOfTP != tp.DurationOfTP {
			return nil, fmt.Errorf(
				"%w: %q maps to both (period %d, duration %v) and (period %d, duration %v)",
				ErrInconsistentTimeseries, tp.Timeseries,
				info.Period, info.DurationOfTP, tp.Period, tp.DurationOfTP)
		}
		info.NumTimepoints++
	}

	tpSeries := make(map[int]string, len(timepoints))
	for _, tp := range timepoints {
		tpSeries[tp.ID] = tp.Timeseries
	}
	for tpID, weight := range mapping.Weights() {
		name, ok := tpSeries[tpID]
		if !ok {
			return nil, fmt.Errorf("temporal: mapping references unknown timepoint %d", tpID)
		}
		byName[name].Hours += float64(weight)
	}

	out := make([]TimeseriesInfo, 0, len(order))
	for _, name := range order {
		info := byName[name]
		if info.DurationOfTP != 0 && info.NumTimepoints != 0 {
			info.ScaleToPeriod = info.Hours / (info.DurationOfTP * float64(info.NumTimepoints))
		}
		out = append(out, *info)
	}
	return out, nil
}

// Periods returns the distinct investment periods in ascending order.
func Periods(timepoints []Timepoint) []int {
	seen := make(map[int]bool)
	var years []int
	for _, tp := range timepoints {
		if !seen[tp.Period] {
			seen[tp.Period] = true
			years = append(years, tp.Period)
		}
	}
	sort.Ints(years)
	return years
}

// PeriodOf returns each timepoint's investment period keyed by timepoint id.
func PeriodOf(timepoints []Timepoint) map[int]int {
	out := make(map[int]int, len(timepoints))
	for _, tp := range timepoints {
		out[tp.ID] = tp.Period
	}
	return out
}

// BuildTimepointsTable emits the timepoints wire table.
func BuildTimepointsTable(timepoints []Timepoint) *tables.Table {
	t := tables.New("timepoints", "timepoint_id", "timestamp", "timeseries")
	for _, tp := range timepoints {
		t.MustAppend(tables.Int(tp.ID), tp.Timestamp, tp.Timeseries)
	}
	return t
}

// BuildTimeseriesTable emits the timeseries wire table.
func BuildTimeseriesTable(timepoints []Timepoint, mapping Mapping) (*tables.Table, error) {
	infos, err := DeriveTimeseries(timepoints, mapping)
	if err != nil {
		return nil, err
	}
	t := tables.New("timeseries", "TIMESERIES", "ts_period", "ts_duration_of_tp", "ts_num_tps", "ts_scale_to_period")
	for _, info := range infos {
		t.MustAppend(
			info.Name,
			tables.Int(info.Period),
			tables.Float(info.DurationOfTP),
			tables.Int(info.NumTimepoints),
			tables.Float(info.ScaleToPeriod),
		)
	}
	return t, nil
}

const (
	timepointsStateFile = "timepoints.csv"
	mappingStateFile    = "timestamp_to_timepoints.csv"
)

// WriteState persists the timepoint metadata and mapping to the state folder
// for the output-extraction leg.
func WriteState(dir string, timepoints []Timepoint, mapping Mapping) error {
	tpTable := tables.New(timepointsStateFile[:len(timepointsStateFile)-4],
		"timepoint_id", "timestamp", "timeseries", "ts_period", "ts_duration_of_tp")
	for _, tp := range timepoints {
		tpTable.MustAppend(tables.Int(tp.ID), tp.Timestamp, tp.Timeseries, tables.Int(tp.Period), tables.Float(tp.DurationOfTP))
	}
	if err := tpTable.WriteCSV(dir); err != nil {
		return err
	}
	mapTable := tables.New(mappingStateFile[:len(mappingStateFile)-4], "timestamp", "timepoint")
	for _, e := range mapping {
		mapTable.MustAppend(e.Timestamp, tables.Int(e.Timepoint))
	}
	return mapTable.WriteCSV(dir)
}

// ReadState loads the timepoint metadata and mapping persisted by WriteState.
func ReadState(dir string) ([]Timepoint, Mapping, error) {
	timepoints, err := ReadTimepointsCSV(filepath.Join(dir, timepointsStateFile))
	if err != nil {
		return nil, nil, err
	}
	mapping, err := ReadMappingCSV(filepath.Join(dir, mappingStateFile))
	if err != nil {
		return nil, nil, err
	}
	return timepoints, mapping, nil
}

// ReadTimepointsCSV loads timepoint metadata from a CSV with columns
// timepoint_id, timestamp, timeseries, ts_period, ts_duration_of_tp.
func ReadTimepointsCSV(path string) ([]Timepoint, error) {
	tpTable, err := tables.ReadCSV(path,
		"timepoint_id", "timestamp", "timeseries", "ts_period", "ts_duration_of_tp")
	if err != nil {
		return nil, err
	}
	timepoints := make([]Timepoint, 0, tpTable.Len())
	for _, row := range tpTable.Rows {
		id, err := tables.ParseInt(row[0])
		if err != nil {
			return nil, err
		}
		period, err := tables.ParseInt(row[3])
		if err != nil {
			return nil, err
		}
		duration, err := tables.ParseFloat(row[4])
		if err != nil {
			return nil, err
		}
		timepoints = append(timepoints, Timepoint{
			ID: id, Timestamp: row[1], Timeseries: row[2], Period: period, DurationOfTP: duration,
		})
	}
	return timepoints, nil
}

// ReadMappingCSV loads the timestamp→timepoint mapping from a CSV with
// columns timestamp, timepoint; row order is the chronological order.
func ReadMappingCSV(path string) (Mapping, error) {
	mapTable, err := tables.ReadCSV(path, "timestamp", "timepoint")
	if err != nil {
		return nil, err
	}
	mapping := make(Mapping, 0, mapTable.Len())
	for _, row := range mapTable.Rows {
		tp, err := tables.ParseInt(row[1])
		if err != nil {
			return nil, err
		}
		mapping = append(mapping, MappingEntry{Timestamp: row[0], Timepoint: tp})
	}
	return mapping, nil
}
