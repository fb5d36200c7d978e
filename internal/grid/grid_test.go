package grid

import (
	"path/filepath"
	"reflect"
	"testing"
)

func testGrid() *Grid {
	return &Grid{
		Buses: []Bus{
			{ID: 1, ZoneID: 1, BaseKV: 230, Pd: 10, Lat: 47.6, Lon: -122.3},
			{ID: 2, ZoneID: 1, BaseKV: 230, Pd: 30, Lat: 45.5, Lon: -122.6},
		},
		Plants: []Plant{
			{ID: 1, BusID: 1, Type: "ng", Pmin: 10, Pmax: 50},
			{ID: 3, BusID: 2, Type: "solar", Pmax: 20},
		},
		GenCost: GenCost{
			Before: map[int]CostCurve{1: {C1: 30}, 3: {}},
			After:  map[int]CostCurve{1: {C1: 30}, 3: {}},
		},
		Branches: []Branch{{ID: 1, FromBusID: 1, ToBusID: 2, RateA: 100, X: 0.02}},
		DCLines:  []DCLine{{ID: 0, FromBusID: 1, ToBusID: 2, Pmax: 40, Pmin: -40}},
	}
}

func TestCloneIndependence(t *testing.T) {
	original := testGrid()
	clone := original.Clone()
	clone.Plants[0].Pmax = 999
	clone.GenCost.Before[1] = CostCurve{C1: 1}
	clone.Branches[0].RateA = 1

	if original.Plants[0].Pmax != 50 {
		t.Fatal("clone shares plant slice with original")
	}
	if original.GenCost.Before[1].C1 != 30 {
		t.Fatal("clone shares cost map with original")
	}
	if original.Branches[0].RateA != 100 {
		t.Fatal("clone shares branch slice with original")
	}
}

func TestLookups(t *testing.T) {
	g := testGrid()
	if b, err := g.Bus(2); err != nil || b.Pd != 30 {
		t.Fatalf("Bus(2): %v %v", b, err)
	}
	if _, err := g.Bus(9); err == nil {
		t.Fatal("want error for unknown bus")
	}
	if p, err := g.Plant(3); err != nil || p.Type != "solar" {
		t.Fatalf("Plant(3): %v %v", p, err)
	}
	if _, err := g.Plant(2); err == nil {
		t.Fatal("want error for unknown plant")
	}
	if _, err := g.Branch(7); err == nil {
		t.Fatal("want error for unknown branch")
	}
	if _, err := g.DCLine(7); err == nil {
		t.Fatal("want error for unknown dcline")
	}
}

func TestMaxPlantID(t *testing.T) {
	g := testGrid()
	if got := g.MaxPlantID(); got != 3 {
		t.Fatalf("MaxPlantID: got %d, want 3", got)
	}
	empty := &Grid{}
	if got := empty.MaxPlantID(); got != -1 {
		t.Fatalf("MaxPlantID empty: got %d, want -1", got)
	}
	if ids := g.PlantIDs(); !reflect.DeepEqual(ids, []int{1, 3}) {
		t.Fatalf("PlantIDs: got %v", ids)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.json")
	g := testGrid()
	if err := g.WriteJSON(path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	back, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !reflect.DeepEqual(g, back) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", g, back)
	}
}

func TestProfileCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demand.csv")
	p := NewProfile([]string{"2019-01-01 00:00:00", "2019-01-01 01:00:00"})
	if err := p.SetColumn(2, []float64{1.5, 2.5}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if err := p.SetColumn(1, []float64{10, 20}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if err := p.WriteProfileCSV(path); err != nil {
		t.Fatalf("WriteProfileCSV: %v", err)
	}

	back, err := ReadProfileCSV(path)
	if err != nil {
		t.Fatalf("ReadProfileCSV: %v", err)
	}
	if !reflect.DeepEqual(back.Timestamps, p.Timestamps) {
		t.Fatalf("timestamps: got %v", back.Timestamps)
	}
	if !reflect.DeepEqual(back.Column(2), []float64{1.5, 2.5}) {
		t.Fatalf("column 2: got %v", back.Column(2))
	}
	if !reflect.DeepEqual(back.ColumnIDs(), []int{1, 2}) {
		t.Fatalf("column ids: got %v", back.ColumnIDs())
	}
}

func TestSetColumnLengthCheck(t *testing.T) {
	p := NewProfile([]string{"a", "b"})
	if err := p.SetColumn(1, []float64{1}); err == nil {
		t.Fatal("want error for length mismatch")
	}
}

func TestProfileClone(t *testing.T) {
	p := NewProfile([]string{"a", "b"})
	if err := p.SetColumn(1, []float64{1, 2}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	c := p.Clone()
	c.Values[1][0] = 9
	c.Timestamps[0] = "z"
	if p.Values[1][0] != 1 || p.Timestamps[0] != "a" {
		t.Fatalf("clone shares state with the original: %+v", p)
	}
	var absent *Profile
	if absent.Clone() != nil {
		t.Fatal("nil profile should clone to nil")
	}
}
