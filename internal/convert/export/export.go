// Package export transforms the static grid model into the tabular input file
// set consumed by the external capacity-expansion optimizer. Every builder is
// a pure function of grid sub-tables plus the parameter set.
package export

import (
	"fmt"
	"math"
	"sort"

	"gridswitch/internal/convert/gencost"
	"gridswitch/internal/grid"
	"gridswitch/internal/grid/identifiers"
	"gridswitch/internal/params"
	"gridswitch/internal/tables"
)

// Period is one investment period with its covered year span.
type Period struct {
	Year  int
	Start int
	End   int
}

// Years returns the period years in input order.
func Years(periods []Period) []int {
	years := make([]int, len(periods))
	for i, p := range periods {
		years[i] = p.Year
	}
	return years
}

// BuildFinancials emits the single-row financials table.
func BuildFinancials(p params.Parameters, baseYear int) *tables.Table {
	t := tables.New("financials", "discount_rate", "interest_rate", "base_year")
	t.MustAppend(tables.Float(p.Financial.DiscountRate), tables.Float(p.Financial.InterestRate), tables.Int(baseYear))
	return t
}

// BuildFuels emits one row per priced fuel. CO2 intensities are not modeled
// and are emitted as the optimizer's null marker.
func BuildFuels(p params.Parameters) *tables.Table {
	t := tables.New("fuels", "fuel", "co2_intensity", "upstream_co2_intensity")
	for _, fuel := range p.Fuels {
		t.MustAppend(fuel, ".", ".")
	}
	return t
}

// AverageFuelCosts computes the mean historical fuel cost per (bus, fuel).
func AverageFuelCosts(records []grid.FuelCostRecord) map[int]map[string]float64 {
	sums := make(map[int]map[string]float64)
	counts := make(map[int]map[string]int)
	for _, r := range records {
		if sums[r.BusID] == nil {
			sums[r.BusID] = make(map[string]float64)
			counts[r.BusID] = make(map[string]int)
		}
		sums[r.BusID][r.Fuel] += r.Cost
		counts[r.BusID][r.Fuel]++
	}
	avg := make(map[int]map[string]float64, len(sums))
	for bus, fuels := range sums {
		avg[bus] = make(map[string]float64, len(fuels))
		for fuel, sum := range fuels {
			avg[bus][fuel] = sum / float64(counts[bus][fuel])
		}
	}
	return avg
}

// BuildFuelCost projects average historical fuel costs across every
// investment year, inflating by (1+interest_rate)^(year-base_year). Rows with
// non-positive cost are dropped: fuel types with no real fuel cost are not
// part of the fuel market.
func BuildFuelCost(g *grid.Grid, p params.Parameters, baseYear int, invYears []int) *tables.Table {
	t := tables.New("fuel_cost", "load_zone", "fuel", "period", "fuel_cost")
	avg := AverageFuelCosts(g.FuelCosts)

	buses := make([]int, 0, len(avg))
	for bus := range avg {
		buses = append(buses, bus)
	}
	sort.Ints(buses)

	for _, bus := range buses {
		fuels := make([]string, 0, len(avg[bus]))
		for fuel := range avg[bus] {
			fuels = append(fuels, fuel)
		}
		sort.Strings(fuels)
		for _, fuel := range fuels {
			base := avg[bus][fuel]
			if base <= 0 {
				continue
			}
			for _, year := range invYears {
				inflated := base * math.Pow(1+p.Financial.InterestRate, float64(year-baseYear))
				t.MustAppend(tables.Int(bus), fuel, tables.Int(year), tables.Float(inflated))
			}
		}
	}
	return t
}

// BuildGenerationProjectsInfo emits two logical rows per plant: the existing
// unit and its hypothetical-expansion twin, sharing all technical parameters
// except identifier and capacity limit. Heat rate is estimated as the fuel
// portion of the linearized slope divided by the average fuel cost at the
// plant's bus, with 0 substituted when that cost is zero or undefined.
func BuildGenerationProjectsInfo(g *grid.Grid, lin map[int]gencost.Linearized, p params.Parameters) (*tables.Table, error) {
	t := tables.New("generation_projects_info",
		"GENERATION_PROJECT", "gen_tech", "gen_load_zone", "gen_connect_cost_per_mw",
		"gen_capacity_limit_mw", "gen_full_load_heat_rate", "gen_variable_om",
		"gen_max_age", "gen_is_variable", "gen_is_baseload", "gen_energy_source")
	avg := AverageFuelCosts(g.FuelCosts)

	appendRow := func(plant grid.Plant, tag, capacityLimit string) error {
		l, ok := lin[plant.ID]
		if !ok {
			return fmt.Errorf("export: no linearized cost for plant %d", plant.ID)
		}
		source := p.EnergySource(plant.Type)
		heatRate := 0.0
		variableOM := l.Slope
		if p.IsFuel(source) {
			fuelCost := avg[plant.BusID][source]
			if fuelCost > 0 {
				heatRate = l.Slope * p.FuelShareOfGencost / fuelCost
			}
			variableOM = l.Slope * (1 - p.FuelShareOfGencost)
		}
		return t.Append(
			tag,
			plant.Type,
			tables.Int(plant.BusID),
			"0",
			capacityLimit,
			tables.Float(heatRate),
			tables.Float(variableOM),
			tables.Float(p.AssumedAge(plant.Type)),
			boolCell(p.IsVariable(plant.Type)),
			boolCell(p.IsBaseload(plant.Type)),
			source,
		)
	}

	plants := sortedPlants(g.Plants)
	for _, plant := range plants {
		if err := appendRow(plant, identifiers.EncodePlant(plant.ID), tables.Float(plant.Pmax)); err != nil {
			return nil, err
		}
	}
	for _, plant := range plants {
		if err := appendRow(plant, identifiers.EncodeExpansion(plant.ID), tables.Float(p.CapacityLimit(plant.Type))); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// BuildGenBuildCosts emits one row per plant per build year: existing plants
// at the base year, hypothetical-expansion twins in every investment year,
// both priced at the per-type overnight cost.
func BuildGenBuildCosts(plants []grid.Plant, lin map[int]gencost.Linearized, p params.Parameters, baseYear int, invYears []int) (*tables.Table, error) {
	t := tables.New("gen_build_costs", "GENERATION_PROJECT", "build_year", "gen_overnight_cost", "gen_fixed_om")
	appendRows := func(year int, tagOf func(int) string) error {
		for _, plant := range sortedPlants(plants) {
			l, ok := lin[plant.ID]
			if !ok {
				return fmt.Errorf("export: no linearized cost for plant %d", plant.ID)
			}
			fixedOM := 0.0
			if plant.Pmax != 0 {
				fixedOM = l.CostAtMin / plant.Pmax
			}
			t.MustAppend(
				tagOf(plant.ID),
				tables.Int(year),
				tables.Float(p.InvestmentCost(plant.Type)),
				tables.Float(fixedOM),
			)
		}
		return nil
	}
	if err := appendRows(baseYear, identifiers.EncodePlant); err != nil {
		return nil, err
	}
	for _, year := range invYears {
		if err := appendRows(year, identifiers.EncodeExpansion); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// BuildGenBuildPredetermined registers every existing plant as built at the
// base year with its current capacity.
func BuildGenBuildPredetermined(plants []grid.Plant, baseYear int) *tables.Table {
	t := tables.New("gen_build_predetermined", "GENERATION_PROJECT", "build_year", "gen_predetermined_cap")
	for _, plant := range sortedPlants(plants) {
		t.MustAppend(identifiers.EncodePlant(plant.ID), tables.Int(baseYear), tables.Float(plant.Pmax))
	}
	return t
}

// BuildLoadZones emits one load zone per bus with the zone defaults attached.
func BuildLoadZones(buses []grid.Bus, p params.Parameters) *tables.Table {
	t := tables.New("load_zones", "LOAD_ZONE", "dbid", "existing_local_td", "local_td_annual_cost_per_mw")
	sorted := make([]grid.Bus, len(buses))
	copy(sorted, buses)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i, bus := range sorted {
		t.MustAppend(
			tables.Int(bus.ID),
			tables.Int(i+1),
			tables.Float(p.LoadZone.ExistingLocalTD),
			tables.Float(p.LoadZone.LocalTDAnnualCostPerMW),
		)
	}
	return t
}

// BuildNonFuelEnergySource emits the list of non-fuel energy sources.
func BuildNonFuelEnergySource(p params.Parameters) *tables.Table {
	t := tables.New("non_fuel_energy_source", "energy_source")
	for _, source := range p.NonFuels {
		t.MustAppend(source)
	}
	return t
}

// BuildPeriods emits the user-supplied investment period metadata.
func BuildPeriods(periods []Period) *tables.Table {
	t := tables.New("periods", "INVESTMENT_PERIOD", "period_start", "period_end")
	for _, p := range periods {
		t.MustAppend(tables.Int(p.Year), tables.Int(p.Start), tables.Int(p.End))
	}
	return t
}

// BuildTransmissionLines concatenates AC branches and DC lines into one
// upgradeable-line table. DC ids carry the "dc" suffix so they cannot collide
// with AC ids. Line length is the great-circle distance between terminal
// buses; efficiency follows the voltage rule (the per-voltage table applies
// only when both ends share a voltage).
func BuildTransmissionLines(g *grid.Grid, p params.Parameters) (*tables.Table, error) {
	t := tables.New("transmission_lines",
		"TRANSMISSION_LINE", "trans_lz1", "trans_lz2", "trans_length_km", "trans_efficiency", "existing_trans_cap")
	appendLine := func(tag string, fromBus, toBus int, capacity float64) error {
		from, err := g.Bus(fromBus)
		if err != nil {
			return fmt.Errorf("export: transmission line %s: %w", tag, err)
		}
		to, err := g.Bus(toBus)
		if err != nil {
			return fmt.Errorf("export: transmission line %s: %w", tag, err)
		}
		return t.Append(
			tag,
			tables.Int(fromBus),
			tables.Int(toBus),
			tables.Float(HaversineKM(from.Lat, from.Lon, to.Lat, to.Lon)),
			tables.Float(p.BranchEfficiency(from.BaseKV, to.BaseKV)),
			tables.Float(capacity),
		)
	}
	for _, b := range g.Branches {
		if err := appendLine(identifiers.EncodeACBranch(b.ID), b.FromBusID, b.ToBusID, b.RateA); err != nil {
			return nil, err
		}
	}
	for _, d := range g.DCLines {
		if err := appendLine(identifiers.EncodeDCBranch(d.ID), d.FromBusID, d.ToBusID, d.Pmax); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// BuildTransParams emits the single-row transmission parameter table.
func BuildTransParams(p params.Parameters) *tables.Table {
	t := tables.New("trans_params",
		"trans_capital_cost_per_mw_km", "trans_lifetime_yrs", "trans_fixed_om_fraction", "distribution_loss_rate")
	t.MustAppend(
		tables.Float(p.Transmission.CapitalCostPerMWKM),
		tables.Float(p.Transmission.LifetimeYears),
		tables.Float(p.Transmission.FixedOMFraction),
		tables.Float(p.Transmission.DistributionLoss),
	)
	return t
}

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two points in km.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

func boolCell(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func sortedPlants(plants []grid.Plant) []grid.Plant {
	sorted := make([]grid.Plant, len(plants))
	copy(sorted, plants)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}
