package temporal

import (
	"fmt"
	"strconv"
	"strings"

	"gridswitch/internal/grid"
)

// Dispatch holds the hourly operational results of one solver run, keyed by
// investment year. PG is per-plant generation, PF per-AC-branch flow,
// DCLinePF per-DC-line flow and LMP the per-bus marginal price. A variable
// family the solver never instantiated leaves the matching field nil.
type Dispatch struct {
	PG       map[int]*grid.Profile
	PF       map[int]*grid.Profile
	DCLinePF map[int]*grid.Profile
	LMP      map[int]*grid.Profile
}

// ExtractDispatch expands the solver's per-timepoint operational values back
// to hourly resolution and splits them by investment year, each year keeping
// only the timestamps whose timepoint belongs to that period. Generation
// columns follow the shared plant namespace; storage dispatch is dropped.
// DispatchTx is indexed by directed bus pair, so the net flow over a pair is
// the forward value minus the mirrored one, split across parallel branches
// by susceptance (AC) or rated capacity (DC). Zone energy-balance duals are
// divided by the timepoint's weight to recover a per-hour price.
func ExtractDispatch(
	variables, duals map[string]float64,
	grids map[int]*grid.Grid,
	timepoints []Timepoint,
	mapping Mapping,
	plantMapping map[int]string,
) (Dispatch, error) {
	frames, err := ParseTimepoints(variables, []string{"DispatchGen", "DispatchTx"}, mapping)
	if err != nil {
		return Dispatch{}, err
	}
	dualFrames, err := ParseTimepoints(duals, []string{"Zone_Energy_Balance"}, mapping)
	if err != nil {
		return Dispatch{}, err
	}

	rows, err := rowsByYear(timepoints, mapping)
	if err != nil {
		return Dispatch{}, err
	}

	var out Dispatch
	if frame := frames["DispatchGen"]; frame != nil {
		out.PG, err = sliceGeneration(frame, grids, rows, plantMapping)
		if err != nil {
			return Dispatch{}, err
		}
	}
	if frame := frames["DispatchTx"]; frame != nil {
		net, err := netFlow(frame)
		if err != nil {
			return Dispatch{}, err
		}
		out.PF, err = sliceBranchFlow(frame, net, grids, rows)
		if err != nil {
			return Dispatch{}, err
		}
		out.DCLinePF, err = sliceDCLineFlow(frame, net, grids, rows)
		if err != nil {
			return Dispatch{}, err
		}
	}
	if frame := dualFrames["Zone_Energy_Balance"]; frame != nil {
		out.LMP, err = sliceLMP(frame, grids, rows, mapping)
		if err != nil {
			return Dispatch{}, err
		}
	}
	return out, nil
}

// rowsByYear groups the mapping's row indices by each timestamp's investment
// period.
func rowsByYear(timepoints []Timepoint, mapping Mapping) (map[int][]int, error) {
	periodOf := PeriodOf(timepoints)
	rows := make(map[int][]int)
	for i, entry := range mapping {
		year, ok := periodOf[entry.Timepoint]
		if !ok {
			return nil, fmt.Errorf("temporal: mapping references unknown timepoint %d", entry.Timepoint)
		}
		rows[year] = append(rows[year], i)
	}
	return rows, nil
}

func yearGrid(grids map[int]*grid.Grid, year int) (*grid.Grid, error) {
	g, ok := grids[year]
	if !ok {
		return nil, fmt.Errorf("temporal: no reconstructed grid for year %d", year)
	}
	return g, nil
}

func sliceTimestamps(frame *Frame, rows []int) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = frame.Timestamps[row]
	}
	return out
}

func sliceGeneration(frame *Frame, grids map[int]*grid.Grid, rows map[int][]int, plantMapping map[int]string) (map[int]*grid.Profile, error) {
	colOf := make(map[string]int, len(frame.Columns))
	for i, col := range frame.Columns {
		colOf[col] = i
	}

	out := make(map[int]*grid.Profile, len(rows))
	for year, yearRows := range rows {
		g, err := yearGrid(grids, year)
		if err != nil {
			return nil, err
		}
		profile := grid.NewProfile(sliceTimestamps(frame, yearRows))
		for _, plant := range g.Plants {
			tag, ok := plantMapping[plant.ID]
			if !ok {
				// Storage units sit outside the generator namespace.
				continue
			}
			ci, ok := colOf[tag]
			if !ok {
				return nil, fmt.Errorf("temporal: no dispatch values for generator %q", tag)
			}
			values := make([]float64, len(yearRows))
			for i, row := range yearRows {
				values[i] = frame.Values[row][ci]
			}
			if err := profile.SetColumn(plant.ID, values); err != nil {
				return nil, err
			}
		}
		out[year] = profile
	}
	return out, nil
}

// netFlow nets the directed DispatchTx columns: for every "from,to" column
// the mirrored "to,from" column is subtracted, so net["a,b"] = -net["b,a"].
func netFlow(frame *Frame) (map[int]map[string]float64, error) {
	colOf := make(map[string]int, len(frame.Columns))
	for i, col := range frame.Columns {
		colOf[col] = i
	}
	mirrors := make([]int, len(frame.Columns))
	for i, col := range frame.Columns {
		from, to, ok := strings.Cut(col, ",")
		if !ok {
			return nil, fmt.Errorf("temporal: DispatchTx column %q is not a bus pair", col)
		}
		mi, ok := colOf[to+","+from]
		if !ok {
			return nil, fmt.Errorf("temporal: DispatchTx has no mirrored flow for bus pair %q", col)
		}
		mirrors[i] = mi
	}

	net := make(map[int]map[string]float64, len(frame.Values))
	for row, cells := range frame.Values {
		perPair := make(map[string]float64, len(cells))
		for i, col := range frame.Columns {
			perPair[col] = cells[i] - cells[mirrors[i]]
		}
		net[row] = perPair
	}
	return net, nil
}

func sliceBranchFlow(frame *Frame, net map[int]map[string]float64, grids map[int]*grid.Grid, rows map[int][]int) (map[int]*grid.Profile, error) {
	type pair struct{ a, b int }
	unordered := func(from, to int) pair {
		if from > to {
			return pair{to, from}
		}
		return pair{from, to}
	}

	out := make(map[int]*grid.Profile, len(rows))
	for year, yearRows := range rows {
		g, err := yearGrid(grids, year)
		if err != nil {
			return nil, err
		}

		// Parallel branches split the pair's net flow by susceptance.
		totalB := make(map[pair]float64)
		for _, branch := range g.Branches {
			if branch.X <= 0 {
				return nil, fmt.Errorf("temporal: branch %d has non-positive reactance", branch.ID)
			}
			totalB[unordered(branch.FromBusID, branch.ToBusID)] += 1 / branch.X
		}

		profile := grid.NewProfile(sliceTimestamps(frame, yearRows))
		for _, branch := range g.Branches {
			key := fmt.Sprintf("%d,%d", branch.FromBusID, branch.ToBusID)
			share := (1 / branch.X) / totalB[unordered(branch.FromBusID, branch.ToBusID)]
			values := make([]float64, len(yearRows))
			for i, row := range yearRows {
				pairNet, ok := net[row][key]
				if !ok {
					return nil, fmt.Errorf("temporal: no transmission flow for bus pair %q", key)
				}
				values[i] = pairNet * share
			}
			if err := profile.SetColumn(branch.ID, values); err != nil {
				return nil, err
			}
		}
		out[year] = profile
	}
	return out, nil
}

func sliceDCLineFlow(frame *Frame, net map[int]map[string]float64, grids map[int]*grid.Grid, rows map[int][]int) (map[int]*grid.Profile, error) {
	type pair struct{ a, b int }
	unordered := func(from, to int) pair {
		if from > to {
			return pair{to, from}
		}
		return pair{from, to}
	}

	out := make(map[int]*grid.Profile, len(rows))
	for year, yearRows := range rows {
		g, err := yearGrid(grids, year)
		if err != nil {
			return nil, err
		}

		// Parallel DC lines split the pair's net flow by rated capacity.
		totalPmax := make(map[pair]float64)
		for _, line := range g.DCLines {
			totalPmax[unordered(line.FromBusID, line.ToBusID)] += line.Pmax
		}

		profile := grid.NewProfile(sliceTimestamps(frame, yearRows))
		for _, line := range g.DCLines {
			total := totalPmax[unordered(line.FromBusID, line.ToBusID)]
			if total <= 0 {
				return nil, fmt.Errorf("temporal: dcline %d belongs to a zero-capacity pair", line.ID)
			}
			key := fmt.Sprintf("%d,%d", line.FromBusID, line.ToBusID)
			share := line.Pmax / total
			values := make([]float64, len(yearRows))
			for i, row := range yearRows {
				pairNet, ok := net[row][key]
				if !ok {
					return nil, fmt.Errorf("temporal: no transmission flow for bus pair %q", key)
				}
				values[i] = pairNet * share
			}
			if err := profile.SetColumn(line.ID, values); err != nil {
				return nil, err
			}
		}
		out[year] = profile
	}
	return out, nil
}

func sliceLMP(frame *Frame, grids map[int]*grid.Grid, rows map[int][]int, mapping Mapping) (map[int]*grid.Profile, error) {
	colOf := make(map[string]int, len(frame.Columns))
	for i, col := range frame.Columns {
		colOf[col] = i
	}
	weights := mapping.Weights()

	out := make(map[int]*grid.Profile, len(rows))
	for year, yearRows := range rows {
		g, err := yearGrid(grids, year)
		if err != nil {
			return nil, err
		}
		profile := grid.NewProfile(sliceTimestamps(frame, yearRows))
		for _, bus := range g.Buses {
			ci, ok := colOf[strconv.Itoa(bus.ID)]
			if !ok {
				return nil, fmt.Errorf("temporal: no energy-balance dual for bus %d", bus.ID)
			}
			values := make([]float64, len(yearRows))
			for i, row := range yearRows {
				// The dual prices the whole weighted timepoint.
				values[i] = frame.Values[row][ci] / float64(weights[mapping[row].Timepoint])
			}
			if err := profile.SetColumn(bus.ID, values); err != nil {
				return nil, err
			}
		}
		out[year] = profile
	}
	return out, nil
}
