package temporal

import (
	"fmt"
	"sort"

	"gridswitch/internal/grid"
	"gridswitch/internal/grid/identifiers"
	"gridswitch/internal/tables"
)

// BuildLoads distributes each zone's hourly demand to buses in proportion to
// each bus's static share of its zone's total demand, then averages bus
// demand across the timestamps sharing a timepoint. The mean (not the sum) is
// taken: a timepoint value represents a typical hour, not an aggregate.
func BuildLoads(buses []grid.Bus, demand *grid.Profile, mapping Mapping) (*tables.Table, error) {
	if demand == nil {
		return nil, fmt.Errorf("temporal: demand profile is required")
	}
	zoneTotals := make(map[int]float64)
	for _, bus := range buses {
		zoneTotals[bus.ZoneID] += bus.Pd
	}

	rowOf := make(map[string]int, len(demand.Timestamps))
	for i, ts := range demand.Timestamps {
		rowOf[ts] = i
	}

	type cell struct {
		sum   float64
		count int
	}
	// keyed by (bus, timepoint)
	acc := make(map[int]map[int]*cell, len(buses))
	timepointSet := make(map[int]bool)
	for _, entry := range mapping {
		row, ok := rowOf[entry.Timestamp]
		if !ok {
			return nil, fmt.Errorf("temporal: demand profile has no timestamp %q", entry.Timestamp)
		}
		timepointSet[entry.Timepoint] = true
		for _, bus := range buses {
			share := 0.0
			if total := zoneTotals[bus.ZoneID]; total != 0 {
				share = bus.Pd / total
			}
			zone := demand.Column(bus.ZoneID)
			if zone == nil {
				return nil, fmt.Errorf("temporal: demand profile has no zone %d", bus.ZoneID)
			}
			if acc[bus.ID] == nil {
				acc[bus.ID] = make(map[int]*cell)
			}
			c := acc[bus.ID][entry.Timepoint]
			if c == nil {
				c = &cell{}
				acc[bus.ID][entry.Timepoint] = c
			}
			c.sum += zone[row] * share
			c.count++
		}
	}

	timepoints := make([]int, 0, len(timepointSet))
	for tp := range timepointSet {
		timepoints = append(timepoints, tp)
	}
	sort.Ints(timepoints)

	busIDs := make([]int, 0, len(buses))
	for _, bus := range buses {
		busIDs = append(busIDs, bus.ID)
	}
	sort.Ints(busIDs)

	t := tables.New("loads", "LOAD_ZONE", "TIMEPOINT", "zone_demand_mw")
	for _, busID := range busIDs {
		for _, tp := range timepoints {
			c := acc[busID][tp]
			if c == nil || c.count == 0 {
				continue
			}
			t.MustAppend(tables.Int(busID), tables.Int(tp), tables.Float(c.sum/float64(c.count)))
		}
	}
	return t, nil
}

// BuildVariableCapacityFactors normalizes each variable generator's hourly
// output by its Pmax to a capacity factor (0 when Pmax is 0), averages across
// the timestamps sharing a timepoint, and replicates the result for both the
// existing and hypothetical-expansion identifiers of the plant: expansion
// candidates are assumed to share the existing unit's profile shape.
func BuildVariableCapacityFactors(profiles grid.ProfileSet, plants []grid.Plant, mapping Mapping) (*tables.Table, error) {
	pmax := make(map[int]float64, len(plants))
	for _, plant := range plants {
		pmax[plant.ID] = plant.Pmax
	}

	type plantFactors struct {
		id         int
		timepoints []int
		means      map[int]float64
	}
	var all []plantFactors

	for _, resource := range []string{"hydro", "solar", "wind"} {
		profile := profiles.Generation()[resource]
		if profile == nil {
			continue
		}
		rowOf := make(map[string]int, len(profile.Timestamps))
		for i, ts := range profile.Timestamps {
			rowOf[ts] = i
		}
		for _, plantID := range profile.ColumnIDs() {
			max, known := pmax[plantID]
			if !known {
				return nil, fmt.Errorf("temporal: %s profile references unknown plant %d", resource, plantID)
			}
			values := profile.Column(plantID)
			sums := make(map[int]float64)
			counts := make(map[int]int)
			var order []int
			for _, entry := range mapping {
				row, ok := rowOf[entry.Timestamp]
				if !ok {
					return nil, fmt.Errorf("temporal: %s profile has no timestamp %q", resource, entry.Timestamp)
				}
				cf := 0.0
				if max != 0 {
					cf = values[row] / max
				}
				if _, seen := counts[entry.Timepoint]; !seen {
					order = append(order, entry.Timepoint)
				}
				sums[entry.Timepoint] += cf
				counts[entry.Timepoint]++
			}
			sort.Ints(order)
			means := make(map[int]float64, len(order))
			for _, tp := range order {
				means[tp] = sums[tp] / float64(counts[tp])
			}
			all = append(all, plantFactors{id: plantID, timepoints: order, means: means})
		}
	}

	t := tables.New("variable_capacity_factors", "GENERATION_PROJECT", "timepoint", "gen_max_capacity_factor")
	for _, pf := range all {
		for _, tp := range pf.timepoints {
			t.MustAppend(identifiers.EncodePlant(pf.id), tables.Int(tp), tables.Float(pf.means[tp]))
		}
	}
	for _, pf := range all {
		for _, tp := range pf.timepoints {
			t.MustAppend(identifiers.EncodeExpansion(pf.id), tables.Int(tp), tables.Float(pf.means[tp]))
		}
	}
	return t, nil
}
