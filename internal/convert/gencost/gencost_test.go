package gencost

import (
	"math"
	"testing"

	"gridswitch/internal/grid"
	"gridswitch/internal/params"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLinearize(t *testing.T) {
	plants := []grid.Plant{
		{ID: 1, Type: "ng", Pmin: 20, Pmax: 100},
	}
	curves := map[int]grid.CostCurve{
		1: {C0: 100, C1: 10, C2: 0.1},
	}
	out, err := Linearize(plants, curves, params.Default())
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	// c(20) = 100 + 200 + 40 = 340; c(100) = 100 + 1000 + 1000 = 2100.
	lin := out[1]
	if !almostEqual(lin.CostAtMin, 340) {
		t.Fatalf("CostAtMin: got %v, want 340", lin.CostAtMin)
	}
	if !almostEqual(lin.Slope, (2100.0-340.0)/80.0) {
		t.Fatalf("Slope: got %v, want 22", lin.Slope)
	}
}

func TestLinearizeAssumedPmin(t *testing.T) {
	p := params.Default()
	frac := 0.5
	p.AssumedPmins["ng"] = &frac
	plants := []grid.Plant{
		{ID: 1, Type: "ng", Pmin: 0, Pmax: 100},
	}
	curves := map[int]grid.CostCurve{
		1: {C0: 0, C1: 10, C2: 0},
	}
	out, err := Linearize(plants, curves, p)
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	// Effective Pmin = 50, so CostAtMin = 500 and slope over the remaining 50 MW.
	lin := out[1]
	if !almostEqual(lin.CostAtMin, 500) {
		t.Fatalf("CostAtMin: got %v, want 500", lin.CostAtMin)
	}
	if !almostEqual(lin.Slope, 10) {
		t.Fatalf("Slope: got %v, want 10", lin.Slope)
	}
}

func TestLinearizeDegenerateSpan(t *testing.T) {
	p := params.Default()
	frac := 1.0
	p.AssumedPmins["nuclear"] = &frac
	plants := []grid.Plant{
		{ID: 2, Type: "nuclear", Pmin: 30, Pmax: 80},
	}
	curves := map[int]grid.CostCurve{
		2: {C0: 5, C1: 2, C2: 0},
	}
	out, err := Linearize(plants, curves, p)
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	lin := out[2]
	if lin.Slope != 0 {
		t.Fatalf("Slope: got %v, want 0 for zero span", lin.Slope)
	}
	if !almostEqual(lin.CostAtMin, 165) {
		t.Fatalf("CostAtMin: got %v, want 165", lin.CostAtMin)
	}
}

func TestLinearizeMissingCurve(t *testing.T) {
	plants := []grid.Plant{{ID: 9, Type: "ng", Pmax: 10}}
	if _, err := Linearize(plants, map[int]grid.CostCurve{}, params.Default()); err == nil {
		t.Fatal("want error for missing cost curve")
	}
}
