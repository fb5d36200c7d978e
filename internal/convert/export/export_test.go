package export

import (
	"math"
	"testing"

	"gridswitch/internal/convert/gencost"
	"gridswitch/internal/grid"
	"gridswitch/internal/params"
	"gridswitch/internal/tables"
)

func testGrid() *grid.Grid {
	return &grid.Grid{
		Buses: []grid.Bus{
			{ID: 1, ZoneID: 1, BaseKV: 230, Pd: 10, Lat: 47.6, Lon: -122.3},
			{ID: 2, ZoneID: 1, BaseKV: 230, Pd: 30, Lat: 45.5, Lon: -122.6},
		},
		Plants: []grid.Plant{
			{ID: 1, BusID: 1, Type: "ng", Pmin: 10, Pmax: 50},
			{ID: 2, BusID: 2, Type: "solar", Pmax: 20},
		},
		GenCost: grid.GenCost{
			Before: map[int]grid.CostCurve{1: {C1: 30}, 2: {}},
			After:  map[int]grid.CostCurve{1: {C1: 30}, 2: {}},
		},
		Branches: []grid.Branch{{ID: 1, FromBusID: 1, ToBusID: 2, RateA: 100, X: 0.02}},
		DCLines:  []grid.DCLine{{ID: 0, FromBusID: 1, ToBusID: 2, Pmax: 40, Pmin: -40}},
		FuelCosts: []grid.FuelCostRecord{
			{BusID: 1, Fuel: "NaturalGas", Cost: 4},
			{BusID: 1, Fuel: "NaturalGas", Cost: 6},
		},
	}
}

func testLinearized(t *testing.T, g *grid.Grid, p params.Parameters) map[int]gencost.Linearized {
	t.Helper()
	lin, err := gencost.Linearize(g.Plants, g.GenCost.Before, p)
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	return lin
}

func cell(t *testing.T, tbl *tables.Table, row int, column string) string {
	t.Helper()
	v, err := tbl.Cell(row, column)
	if err != nil {
		t.Fatalf("Cell(%d, %s): %v", row, column, err)
	}
	return v
}

func TestBuildGenerationProjectsInfo(t *testing.T) {
	g := testGrid()
	p := params.Default()
	tbl, err := BuildGenerationProjectsInfo(g, testLinearized(t, g, p), p)
	if err != nil {
		t.Fatalf("BuildGenerationProjectsInfo: %v", err)
	}
	// Two plants give two existing rows followed by two expansion rows.
	if tbl.Len() != 4 {
		t.Fatalf("rows: got %d, want 4", tbl.Len())
	}
	wantTags := []string{"g1", "g2", "g1i", "g2i"}
	for i, want := range wantTags {
		if got := cell(t, tbl, i, "GENERATION_PROJECT"); got != want {
			t.Fatalf("row %d tag: got %q, want %q", i, got, want)
		}
	}

	// The ng plant's heat rate is slope*fuel_share / avg fuel cost at its bus:
	// 30 * 0.7 / 5 = 4.2, and variable O&M is the non-fuel share 30 * 0.3 = 9.
	if got := cell(t, tbl, 0, "gen_full_load_heat_rate"); got != "4.2" {
		t.Fatalf("heat rate: got %q, want 4.2", got)
	}
	if got := cell(t, tbl, 0, "gen_variable_om"); got != "9" {
		t.Fatalf("variable om: got %q, want 9", got)
	}

	// Solar has a non-fuel source: heat rate 0, full slope as variable O&M.
	if got := cell(t, tbl, 1, "gen_full_load_heat_rate"); got != "0" {
		t.Fatalf("solar heat rate: got %q, want 0", got)
	}
	if got := cell(t, tbl, 1, "gen_is_variable"); got != "1" {
		t.Fatalf("solar is_variable: got %q, want 1", got)
	}
	if got := cell(t, tbl, 0, "gen_is_variable"); got != "0" {
		t.Fatalf("ng is_variable: got %q, want 0", got)
	}

	// Existing rows are limited to current capacity, expansion rows to the
	// per-type limit.
	if got := cell(t, tbl, 0, "gen_capacity_limit_mw"); got != "50" {
		t.Fatalf("existing limit: got %q, want 50", got)
	}
	if got := cell(t, tbl, 3, "gen_capacity_limit_mw"); got != tables.Float(p.CapacityLimit("solar")) {
		t.Fatalf("expansion limit: got %q", got)
	}
}

func TestBuildGenBuildCosts(t *testing.T) {
	g := testGrid()
	p := params.Default()
	tbl, err := BuildGenBuildCosts(g.Plants, testLinearized(t, g, p), p, 2019, []int{2030, 2040})
	if err != nil {
		t.Fatalf("BuildGenBuildCosts: %v", err)
	}
	// 2 existing rows at the base year plus 2 expansion rows per investment
	// year.
	if tbl.Len() != 6 {
		t.Fatalf("rows: got %d, want 6", tbl.Len())
	}
	if got := cell(t, tbl, 0, "GENERATION_PROJECT"); got != "g1" {
		t.Fatalf("row 0 tag: got %q", got)
	}
	if got := cell(t, tbl, 0, "build_year"); got != "2019" {
		t.Fatalf("row 0 year: got %q", got)
	}
	if got := cell(t, tbl, 2, "GENERATION_PROJECT"); got != "g1i" {
		t.Fatalf("row 2 tag: got %q", got)
	}
	if got := cell(t, tbl, 4, "build_year"); got != "2040" {
		t.Fatalf("row 4 year: got %q", got)
	}
	// Fixed O&M is cost at the assumed minimum spread over capacity:
	// c(10) = 300, over 50 MW = 6.
	if got := cell(t, tbl, 0, "gen_fixed_om"); got != "6" {
		t.Fatalf("fixed om: got %q, want 6", got)
	}
}

func TestBuildFuelCost(t *testing.T) {
	g := testGrid()
	g.FuelCosts = append(g.FuelCosts, grid.FuelCostRecord{BusID: 2, Fuel: "Coal", Cost: 0})
	p := params.Default()
	tbl := BuildFuelCost(g, p, 2019, []int{2030})
	// The zero-cost coal record is dropped; only bus 1 NaturalGas remains.
	if tbl.Len() != 1 {
		t.Fatalf("rows: got %d, want 1", tbl.Len())
	}
	want := 5 * math.Pow(1.029, 11)
	got, err := tables.ParseFloat(cell(t, tbl, 0, "fuel_cost"))
	if err != nil {
		t.Fatalf("parse cost: %v", err)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("cost: got %v, want %v", got, want)
	}
}

func TestBuildTransmissionLines(t *testing.T) {
	g := testGrid()
	p := params.Default()
	tbl, err := BuildTransmissionLines(g, p)
	if err != nil {
		t.Fatalf("BuildTransmissionLines: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows: got %d, want 2", tbl.Len())
	}
	if got := cell(t, tbl, 0, "TRANSMISSION_LINE"); got != "1ac" {
		t.Fatalf("ac tag: got %q", got)
	}
	if got := cell(t, tbl, 1, "TRANSMISSION_LINE"); got != "0dc" {
		t.Fatalf("dc tag: got %q", got)
	}
	// Both buses run at 230 kV so the voltage table applies.
	if got := cell(t, tbl, 0, "trans_efficiency"); got != "0.97" {
		t.Fatalf("efficiency: got %q, want 0.97", got)
	}
	if got := cell(t, tbl, 1, "existing_trans_cap"); got != "40" {
		t.Fatalf("dc capacity: got %q, want 40", got)
	}

	length, err := tables.ParseFloat(cell(t, tbl, 0, "trans_length_km"))
	if err != nil {
		t.Fatalf("parse length: %v", err)
	}
	if length < 200 || length > 300 {
		t.Fatalf("Seattle to Portland should be roughly 235 km, got %v", length)
	}
}

func TestBuildTransmissionLinesUnknownBus(t *testing.T) {
	g := testGrid()
	g.Branches[0].ToBusID = 99
	if _, err := BuildTransmissionLines(g, params.Default()); err == nil {
		t.Fatal("want error for unknown terminal bus")
	}
}

func TestBuildLoadZones(t *testing.T) {
	g := testGrid()
	tbl := BuildLoadZones(g.Buses, params.Default())
	if tbl.Len() != 2 {
		t.Fatalf("rows: got %d, want 2", tbl.Len())
	}
	if got := cell(t, tbl, 0, "dbid"); got != "1" {
		t.Fatalf("dbid: got %q, want 1", got)
	}
	if got := cell(t, tbl, 1, "LOAD_ZONE"); got != "2" {
		t.Fatalf("zone: got %q, want 2", got)
	}
}

func TestSmallBuilders(t *testing.T) {
	p := params.Default()
	if tbl := BuildFinancials(p, 2019); tbl.Len() != 1 {
		t.Fatalf("financials rows: %d", tbl.Len())
	}
	if tbl := BuildFuels(p); tbl.Len() != len(p.Fuels) {
		t.Fatalf("fuels rows: %d", tbl.Len())
	}
	if tbl := BuildNonFuelEnergySource(p); tbl.Len() != len(p.NonFuels) {
		t.Fatalf("non-fuel rows: %d", tbl.Len())
	}
	if tbl := BuildTransParams(p); tbl.Len() != 1 {
		t.Fatalf("trans_params rows: %d", tbl.Len())
	}
	periods := []Period{{Year: 2030, Start: 2025, End: 2035}}
	if tbl := BuildPeriods(periods); tbl.Len() != 1 {
		t.Fatalf("periods rows: %d", tbl.Len())
	}
	tbl := BuildGenBuildPredetermined([]grid.Plant{{ID: 1, Pmax: 50}}, 2019)
	if got := cell(t, tbl, 0, "gen_predetermined_cap"); got != "50" {
		t.Fatalf("predetermined cap: got %q", got)
	}
}

func TestHaversineKM(t *testing.T) {
	if d := HaversineKM(0, 0, 0, 0); d != 0 {
		t.Fatalf("zero distance: got %v", d)
	}
	// One degree of longitude at the equator is about 111 km.
	d := HaversineKM(0, 0, 0, 1)
	if math.Abs(d-111.19) > 0.5 {
		t.Fatalf("equator degree: got %v, want ~111.19", d)
	}
}
