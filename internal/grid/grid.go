package grid

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/mohae/deepcopy"
)

// Bus is a node of the transmission network. Every bus doubles as a load zone
// for the optimizer, with Pd as its static share of zone demand.
type Bus struct {
	ID     int     `json:"id"`
	ZoneID int     `json:"zone_id"`
	BaseKV float64 `json:"base_kv"`
	Pd     float64 `json:"pd"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Plant is a generator connected to a bus.
type Plant struct {
	ID    int     `json:"id"`
	BusID int     `json:"bus_id"`
	Type  string  `json:"type"`
	Pmin  float64 `json:"pmin"`
	Pmax  float64 `json:"pmax"`
}

// CostCurve holds quadratic cost coefficients: cost(p) = C0 + C1*p + C2*p^2.
type CostCurve struct {
	C0 float64 `json:"c0"`
	C1 float64 `json:"c1"`
	C2 float64 `json:"c2"`
}

// GenCost holds per-plant cost curves under the before/after scenarios.
type GenCost struct {
	Before map[int]CostCurve `json:"before"`
	After  map[int]CostCurve `json:"after"`
}

// Branch is an AC transmission line.
type Branch struct {
	ID        int     `json:"id"`
	FromBusID int     `json:"from_bus_id"`
	ToBusID   int     `json:"to_bus_id"`
	RateA     float64 `json:"rate_a"`
	X         float64 `json:"x"`
}

// DCLine is a DC transmission line with an allowed flow range [Pmin, Pmax].
type DCLine struct {
	ID        int     `json:"id"`
	FromBusID int     `json:"from_bus_id"`
	ToBusID   int     `json:"to_bus_id"`
	Pmax      float64 `json:"pmax"`
	Pmin      float64 `json:"pmin"`
}

// StorageUnit is an energy storage unit attached to a bus. Units only appear
// on reconstructed grids, when the optimizer chose to build storage.
type StorageUnit struct {
	ID        int     `json:"id"`
	BusID     int     `json:"bus_id"`
	EnergyMWh float64 `json:"energy_mwh"`
}

// FuelCostRecord is one historical fuel price observation at a bus.
type FuelCostRecord struct {
	BusID int     `json:"bus_id"`
	Fuel  string  `json:"fuel"`
	Cost  float64 `json:"cost"`
}

// Grid bundles the relational tables of a power grid model.
type Grid struct {
	Buses     []Bus            `json:"buses"`
	Plants    []Plant          `json:"plants"`
	GenCost   GenCost          `json:"gencost"`
	Branches  []Branch         `json:"branches"`
	DCLines   []DCLine         `json:"dclines"`
	Storage   []StorageUnit    `json:"storage,omitempty"`
	FuelCosts []FuelCostRecord `json:"fuel_costs,omitempty"`
}

// Clone returns a deep copy of the grid sharing no mutable state with the
// original.
func (g *Grid) Clone() *Grid {
	return deepcopy.Copy(g).(*Grid)
}

// Bus returns the bus with the given id.
func (g *Grid) Bus(id int) (Bus, error) {
	for _, b := range g.Buses {
		if b.ID == id {
			return b, nil
		}
	}
	return Bus{}, fmt.Errorf("grid: unknown bus %d", id)
}

// Plant returns the plant with the given id.
func (g *Grid) Plant(id int) (Plant, error) {
	for _, p := range g.Plants {
		if p.ID == id {
			return p, nil
		}
	}
	return Plant{}, fmt.Errorf("grid: unknown plant %d", id)
}

// Branch returns the AC branch with the given id.
func (g *Grid) Branch(id int) (Branch, error) {
	for _, b := range g.Branches {
		if b.ID == id {
			return b, nil
		}
	}
	return Branch{}, fmt.Errorf("grid: unknown branch %d", id)
}

// DCLine returns the DC line with the given id.
func (g *Grid) DCLine(id int) (DCLine, error) {
	for _, d := range g.DCLines {
		if d.ID == id {
			return d, nil
		}
	}
	return DCLine{}, fmt.Errorf("grid: unknown dcline %d", id)
}

// MaxPlantID returns the largest plant id in the grid, or -1 when the grid has
// no plants.
func (g *Grid) MaxPlantID() int {
	max := -1
	for _, p := range g.Plants {
		if p.ID > max {
			max = p.ID
		}
	}
	return max
}

// PlantIDs returns all plant ids in ascending order.
func (g *Grid) PlantIDs() []int {
	ids := make([]int, 0, len(g.Plants))
	for _, p := range g.Plants {
		ids = append(ids, p.ID)
	}
	sort.Ints(ids)
	return ids
}

// WriteJSON persists the grid to a JSON file.
func (g *Grid) WriteJSON(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("grid: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("grid: write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads a grid persisted with WriteJSON.
func ReadJSON(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("grid: read %s: %w", path, err)
	}
	var g Grid
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("grid: parse %s: %w", path, err)
	}
	return &g, nil
}
