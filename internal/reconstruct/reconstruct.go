// Package reconstruct folds the optimizer's build decisions back onto the
// original grid, producing one independent grid snapshot per investment year.
// Each year starts from a fresh deep copy; nothing is shared between years.
package reconstruct

import (
	"fmt"

	"gridswitch/internal/grid"
	"gridswitch/internal/grid/identifiers"
	"gridswitch/internal/solution"
)

// Apply builds the per-year grids. plantMapping is the authoritative
// generator id↔tag namespace (existing plus expansion candidates) shared with
// the rest of the extraction leg, so synthesized plant ids stay consistent
// across components. Build decisions referencing entities absent from the
// original grid surface as lookup errors: that is an external-data contract
// violation, not an edge case.
func Apply(original *grid.Grid, decisions solution.BuildDecisions, years []int, plantMapping map[int]string) (map[int]*grid.Grid, error) {
	storageMapping, err := storageIDs(decisions.Storage, plantMapping)
	if err != nil {
		return nil, err
	}

	grids := make(map[int]*grid.Grid, len(years))
	for _, year := range years {
		g := original.Clone()
		if err := applyTxUpgrades(g, decisions.Tx, year); err != nil {
			return nil, err
		}
		if err := applyGenUpgrades(g, decisions.Gen, year, plantMapping); err != nil {
			return nil, err
		}
		if err := applyStorageBuilds(g, decisions.Storage, year, storageMapping); err != nil {
			return nil, err
		}
		grids[year] = g
	}
	return grids, nil
}

// applyTxUpgrades scales AC parallel groups and widens DC line flow ranges.
// AC upgrades apply to the whole parallel group (all branches sharing the
// unordered bus pair): every rated member's capacity is scaled by
// (group upgrade total / group rated total) + 1 and its impedance divided by
// the same ratio, preserving per-unit electrical characteristics. Branches
// with zero starting rating have no well-defined ratio and are excluded, both
// from the group total and from scaling.
func applyTxUpgrades(g *grid.Grid, builds []solution.Build, year int) error {
	type pair struct{ a, b int }
	unordered := func(from, to int) pair {
		if from > to {
			return pair{to, from}
		}
		return pair{from, to}
	}

	upgrades := make(map[pair]float64)
	for _, build := range builds {
		if build.Year != year || build.Capacity <= 0 {
			continue
		}
		entity, err := identifiers.Parse(build.Tag)
		if err != nil {
			return err
		}
		switch entity.Kind {
		case identifiers.ACBranch:
			branch, err := g.Branch(entity.ID)
			if err != nil {
				return fmt.Errorf("reconstruct: transmission upgrade %q: %w", build.Tag, err)
			}
			upgrades[unordered(branch.FromBusID, branch.ToBusID)] += build.Capacity
		case identifiers.DCBranch:
			if _, err := g.DCLine(entity.ID); err != nil {
				return fmt.Errorf("reconstruct: transmission upgrade %q: %w", build.Tag, err)
			}
			for i := range g.DCLines {
				if g.DCLines[i].ID == entity.ID {
					g.DCLines[i].Pmax += build.Capacity
					g.DCLines[i].Pmin -= build.Capacity
				}
			}
		default:
			return fmt.Errorf("reconstruct: %q is not a transmission tag", build.Tag)
		}
	}

	ratedTotals := make(map[pair]float64)
	for _, branch := range g.Branches {
		if branch.RateA > 0 {
			ratedTotals[unordered(branch.FromBusID, branch.ToBusID)] += branch.RateA
		}
	}
	for key, upgrade := range upgrades {
		total := ratedTotals[key]
		if total <= 0 {
			continue
		}
		ratio := upgrade/total + 1
		for i := range g.Branches {
			branch := &g.Branches[i]
			if branch.RateA <= 0 || unordered(branch.FromBusID, branch.ToBusID) != key {
				continue
			}
			branch.RateA *= ratio
			branch.X /= ratio
		}
	}
	return nil
}

// applyGenUpgrades appends a new plant row for every expansion candidate the
// optimizer built in the given year. The new unit inherits the original's
// Pmin/Pmax ratio, and its cost curve is rescaled proportionally: c0 scales
// with the capacity ratio and c2 is divided by it, preserving the marginal
// cost curve shape at the new scale. Zero-capacity decisions are dropped.
func applyGenUpgrades(g *grid.Grid, builds []solution.Build, year int, plantMapping map[int]string) error {
	newID := identifiers.InvertMapping(plantMapping)
	for _, build := range builds {
		if build.Year != year || build.Capacity == 0 {
			continue
		}
		entity, err := identifiers.Parse(build.Tag)
		if err != nil {
			return err
		}
		if entity.Kind != identifiers.ExpansionPlant {
			// Existing-plant build variables restate predetermined
			// capacity already present in the grid.
			continue
		}
		id, ok := newID[build.Tag]
		if !ok {
			return fmt.Errorf("reconstruct: generation build %q is outside the plant namespace", build.Tag)
		}
		original, err := g.Plant(entity.ID)
		if err != nil {
			return fmt.Errorf("reconstruct: generation build %q: %w", build.Tag, err)
		}

		plant := grid.Plant{
			ID:    id,
			BusID: original.BusID,
			Type:  original.Type,
			Pmax:  build.Capacity,
		}
		ratio := 0.0
		if original.Pmax != 0 {
			ratio = build.Capacity / original.Pmax
			plant.Pmin = original.Pmin / original.Pmax * build.Capacity
		}
		g.Plants = append(g.Plants, plant)

		for _, curves := range []map[int]grid.CostCurve{g.GenCost.Before, g.GenCost.After} {
			if curves == nil {
				continue
			}
			curve, ok := curves[entity.ID]
			if !ok {
				return fmt.Errorf("reconstruct: generation build %q: no cost curve for plant %d", build.Tag, entity.ID)
			}
			scaled := curve
			scaled.C0 = curve.C0 * ratio
			if ratio != 0 {
				scaled.C2 = curve.C2 / ratio
			}
			curves[id] = scaled
		}
	}
	return nil
}

// applyStorageBuilds attaches a storage unit for every storage-energy
// decision of the given year. An empty decision family adds nothing.
func applyStorageBuilds(g *grid.Grid, builds []solution.Build, year int, storageMapping map[string]int) error {
	for _, build := range builds {
		if build.Year != year || build.Capacity <= 0 {
			continue
		}
		busID, err := identifiers.RecoverStorageBus(build.Tag)
		if err != nil {
			return err
		}
		if _, err := g.Bus(busID); err != nil {
			return fmt.Errorf("reconstruct: storage build %q: %w", build.Tag, err)
		}
		g.Storage = append(g.Storage, grid.StorageUnit{
			ID:        storageMapping[build.Tag],
			BusID:     busID,
			EnergyMWh: build.Capacity,
		})
	}
	return nil
}

// storageIDs synthesizes ids for the storage tags seen in the decisions,
// continuing after the generator namespace so the two never collide. First
// appearance order decides the sequence.
func storageIDs(builds []solution.Build, plantMapping map[int]string) (map[string]int, error) {
	last := -1
	for id := range plantMapping {
		if id > last {
			last = id
		}
	}
	var tags []string
	seen := make(map[string]bool)
	for _, build := range builds {
		if !seen[build.Tag] {
			seen[build.Tag] = true
			tags = append(tags, build.Tag)
		}
	}
	_, storage, err := identifiers.RecoverPlantIndices(tags, last)
	if err != nil {
		return nil, err
	}
	return identifiers.InvertMapping(storage), nil
}
