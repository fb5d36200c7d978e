package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gridswitch/internal/grid"
	"gridswitch/internal/grid/identifiers"
	"gridswitch/internal/params"
	"gridswitch/internal/tables"
)

// Frame is a reduced solver variable expanded back to full hourly resolution:
// one row per timestamp (in mapping order), one column per remaining
// parameter tuple (comma-joined, in first-seen order).
type Frame struct {
	Name       string
	Columns    []string
	Timestamps []string
	Values     [][]float64
}

// ParseTimepoints extracts the requested variables from the solver's flat
// dictionary of "Name[param1,...,paramN,timepoint]" entries, pivots them so
// timepoints become rows, then expands each timepoint row to every timestamp
// mapped to it, preserving chronological order. A requested variable absent
// from the dictionary yields a nil Frame rather than an error, but once a
// variable is present it must carry a value for every (column, timepoint)
// pair the mapping demands.
func ParseTimepoints(entries map[string]float64, names []string, mapping Mapping) (map[string]*Frame, error) {
	out := make(map[string]*Frame, len(names))
	for _, name := range names {
		re := regexp.MustCompile(`^` + regexp.QuoteMeta(name) + `\[(.+)\]$`)

		byTimepoint := make(map[int]map[string]float64)
		colIndex := make(map[string]int)
		var columns []string
		for key, value := range entries {
			m := re.FindStringSubmatch(key)
			if m == nil {
				continue
			}
			parts := strings.Split(m[1], ",")
			tp, err := strconv.Atoi(parts[len(parts)-1])
			if err != nil {
				return nil, fmt.Errorf("temporal: %s entry %q: last parameter is not a timepoint", name, key)
			}
			col := strings.Join(parts[:len(parts)-1], ",")
			if _, ok := colIndex[col]; !ok {
				colIndex[col] = len(columns)
				columns = append(columns, col)
			}
			if byTimepoint[tp] == nil {
				byTimepoint[tp] = make(map[string]float64)
			}
			byTimepoint[tp][col] = value
		}
		if len(byTimepoint) == 0 {
			out[name] = nil
			continue
		}

		frame := &Frame{Name: name, Columns: columns, Timestamps: mapping.Timestamps()}
		frame.Values = make([][]float64, len(mapping))
		for i, entry := range mapping {
			row, ok := byTimepoint[entry.Timepoint]
			if !ok {
				return nil, fmt.Errorf("temporal: %s has no values for timepoint %d", name, entry.Timepoint)
			}
			cells := make([]float64, len(columns))
			for _, col := range columns {
				value, ok := row[col]
				if !ok {
					return nil, fmt.Errorf("temporal: %s has no value for %q at timepoint %d", name, col, entry.Timepoint)
				}
				cells[colIndex[col]] = value
			}
			frame.Values[i] = cells
		}
		out[name] = frame
	}
	return out, nil
}

// ReconstructProfiles inverts BuildLoads and BuildVariableCapacityFactors:
// the reduced per-timepoint demand and capacity-factor tables are expanded to
// full per-timestamp resolution via the mapping, and capacity factors are
// multiplied back up by each year's (possibly upgraded) plant Pmax to recover
// absolute MW. Demand is year-invariant but each year still receives its own
// copy, so year snapshots share nothing. Keys of the result are "demand",
// "hydro", "solar" and "wind"; inner keys are investment years.
func ReconstructProfiles(
	grids map[int]*grid.Grid,
	loads, capacityFactors *tables.Table,
	mapping Mapping,
	plantMapping map[int]string,
	p params.Parameters,
) (map[string]map[int]*grid.Profile, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("temporal: no reconstructed grids")
	}
	var sample *grid.Grid
	for _, g := range grids {
		sample = g
		break
	}

	demand, err := expandDemand(sample, loads, mapping)
	if err != nil {
		return nil, err
	}

	factors, err := pivotCapacityFactors(capacityFactors, plantMapping)
	if err != nil {
		return nil, err
	}

	resourceTypes := map[string]map[string]bool{
		"hydro": {"hydro": true},
		"solar": {"solar": true},
		"wind":  {"wind": true, "wind_offshore": true},
	}

	out := map[string]map[int]*grid.Profile{
		"demand": make(map[int]*grid.Profile),
		"hydro":  make(map[int]*grid.Profile),
		"solar":  make(map[int]*grid.Profile),
		"wind":   make(map[int]*grid.Profile),
	}
	for year, g := range grids {
		out["demand"][year] = demand.Clone()
		for resource, types := range resourceTypes {
			profile := grid.NewProfile(mapping.Timestamps())
			for _, plant := range g.Plants {
				if !types[plant.Type] || !p.IsVariable(plant.Type) {
					continue
				}
				perTimepoint, ok := factors[plant.ID]
				if !ok {
					continue
				}
				values := make([]float64, len(mapping))
				for i, entry := range mapping {
					cf, ok := perTimepoint[entry.Timepoint]
					if !ok {
						return nil, fmt.Errorf("temporal: plant %d has no capacity factor for timepoint %d", plant.ID, entry.Timepoint)
					}
					values[i] = cf * plant.Pmax
				}
				if err := profile.SetColumn(plant.ID, values); err != nil {
					return nil, err
				}
			}
			out[resource][year] = profile
		}
	}
	return out, nil
}

func expandDemand(sample *grid.Grid, loads *tables.Table, mapping Mapping) (*grid.Profile, error) {
	zoneOf := make(map[int]int, len(sample.Buses))
	for _, bus := range sample.Buses {
		zoneOf[bus.ID] = bus.ZoneID
	}

	// Sum bus-level demand up to zones per timepoint.
	zoneValues := make(map[int]map[int]float64)
	for _, row := range loads.Rows {
		busID, err := tables.ParseInt(row[0])
		if err != nil {
			return nil, err
		}
		tp, err := tables.ParseInt(row[1])
		if err != nil {
			return nil, err
		}
		value, err := tables.ParseFloat(row[2])
		if err != nil {
			return nil, err
		}
		zone, ok := zoneOf[busID]
		if !ok {
			return nil, fmt.Errorf("temporal: loads references unknown bus %d", busID)
		}
		if zoneValues[tp] == nil {
			zoneValues[tp] = make(map[int]float64)
		}
		zoneValues[tp][zone] += value
	}

	zones := make(map[int]bool)
	for _, perZone := range zoneValues {
		for zone := range perZone {
			zones[zone] = true
		}
	}

	profile := grid.NewProfile(mapping.Timestamps())
	for zone := range zones {
		values := make([]float64, len(mapping))
		for i, entry := range mapping {
			perZone, ok := zoneValues[entry.Timepoint]
			if !ok {
				return nil, fmt.Errorf("temporal: loads has no values for timepoint %d", entry.Timepoint)
			}
			values[i] = perZone[zone]
		}
		if err := profile.SetColumn(zone, values); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

func pivotCapacityFactors(capacityFactors *tables.Table, plantMapping map[int]string) (map[int]map[int]float64, error) {
	idOf := identifiers.InvertMapping(plantMapping)
	factors := make(map[int]map[int]float64)
	for _, row := range capacityFactors.Rows {
		tag := row[0]
		plantID, ok := idOf[tag]
		if !ok {
			return nil, fmt.Errorf("temporal: capacity factors reference unmapped generator %q", tag)
		}
		tp, err := tables.ParseInt(row[1])
		if err != nil {
			return nil, err
		}
		value, err := tables.ParseFloat(row[2])
		if err != nil {
			return nil, err
		}
		if factors[plantID] == nil {
			factors[plantID] = make(map[int]float64)
		}
		factors[plantID][tp] = value
	}
	return factors, nil
}
