// Package gencost linearizes quadratic generator cost curves into the single
// segment the optimizer consumes.
package gencost

import (
	"fmt"

	"gridswitch/internal/grid"
	"gridswitch/internal/params"
)

// Linearized holds the single-segment form of one plant's cost curve: the
// cost of running at the (possibly assumed) minimum operating point, and the
// slope from there to Pmax.
type Linearized struct {
	CostAtMin float64
	Slope     float64
}

// Linearize converts each plant's quadratic curve to a single segment. When
// the parameter table carries an assumed minimum fraction for the plant's
// type, the effective Pmin is Pmax times that fraction; otherwise the native
// Pmin is kept. A degenerate span (Pmax == effective Pmin) yields slope 0.
func Linearize(plants []grid.Plant, curves map[int]grid.CostCurve, p params.Parameters) (map[int]Linearized, error) {
	out := make(map[int]Linearized, len(plants))
	for _, plant := range plants {
		curve, ok := curves[plant.ID]
		if !ok {
			return nil, fmt.Errorf("gencost: no cost curve for plant %d", plant.ID)
		}
		pmin := plant.Pmin
		if frac := p.AssumedPmin(plant.Type); frac != nil {
			pmin = plant.Pmax * *frac
		}
		costAtMin := evalQuadratic(curve, pmin)
		costAtMax := evalQuadratic(curve, plant.Pmax)
		slope := 0.0
		if span := plant.Pmax - pmin; span != 0 {
			slope = (costAtMax - costAtMin) / span
		}
		out[plant.ID] = Linearized{CostAtMin: costAtMin, Slope: slope}
	}
	return out, nil
}

func evalQuadratic(c grid.CostCurve, p float64) float64 {
	return c.C0 + c.C1*p + c.C2*p*p
}
