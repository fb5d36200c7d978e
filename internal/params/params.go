// Package params holds the constant parameter tables consumed by the
// exporters. Tables are plain values passed explicitly into each function, so
// test suites can substitute alternate parameter sets; nothing here is
// package-level mutable state. Defaults are compiled in and can be overridden
// from a YAML file.
package params

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultKey is the lookup-table key used when a plant type or voltage has no
// explicit entry. Absence of a default for a required lookup is a fatal
// configuration error.
const DefaultKey = "default"

// Financial holds the discount and interest rates applied across the study.
type Financial struct {
	DiscountRate float64 `yaml:"discount_rate"`
	InterestRate float64 `yaml:"interest_rate"`
}

// LoadZone holds the per-zone defaults for the load_zones table.
type LoadZone struct {
	ExistingLocalTD        float64 `yaml:"existing_local_td"`
	LocalTDAnnualCostPerMW float64 `yaml:"local_td_annual_cost_per_mw"`
}

// Transmission holds the trans_params table values.
type Transmission struct {
	CapitalCostPerMWKM float64 `yaml:"trans_capital_cost_per_mw_km"`
	LifetimeYears      float64 `yaml:"trans_lifetime_yrs"`
	FixedOMFraction    float64 `yaml:"trans_fixed_om_fraction"`
	DistributionLoss   float64 `yaml:"distribution_loss_rate"`
}

// Parameters is the full immutable configuration passed into the exporters.
type Parameters struct {
	Financial    Financial    `yaml:"financial"`
	LoadZone     LoadZone     `yaml:"load_zone"`
	Transmission Transmission `yaml:"transmission"`

	// Fuels lists real (priced) fuels; NonFuels lists renewable energy
	// sources with no fuel cost.
	Fuels    []string `yaml:"fuels"`
	NonFuels []string `yaml:"non_fuels"`

	// TypeFuel maps a plant type to its fuel or non-fuel energy source.
	TypeFuel map[string]string `yaml:"type_fuel"`

	// AssumedPmins maps a plant type to an assumed minimum operating
	// fraction of Pmax. A null entry keeps the plant's native Pmin. The
	// "default" key is required.
	AssumedPmins map[string]*float64 `yaml:"assumed_pmins"`

	// InvestmentCosts maps a plant type to its overnight cost per MW.
	InvestmentCosts map[string]float64 `yaml:"investment_costs"`

	// AssumedAges maps a plant type to its maximum age in years.
	AssumedAges map[string]float64 `yaml:"assumed_ages"`

	// CapacityLimits maps a plant type to the buildable capacity limit per
	// expansion candidate, in MW.
	CapacityLimits map[string]float64 `yaml:"capacity_limits"`

	// BranchEfficiencies maps a base voltage (kV, formatted without
	// trailing zeros) to a branch efficiency; used only when both ends of a
	// branch share the voltage, the "default" entry otherwise.
	BranchEfficiencies map[string]float64 `yaml:"branch_efficiencies"`

	// FuelShareOfGencost is the fraction of a linearized cost slope
	// attributed to fuel, used when estimating heat rates.
	FuelShareOfGencost float64 `yaml:"fuel_share_of_gencost"`

	// VariableTypes are the plant types whose output follows an hourly
	// profile; BaseloadTypes run at constant output.
	VariableTypes []string `yaml:"variable_types"`
	BaseloadTypes []string `yaml:"baseload_types"`
}

// Default returns the compiled-in parameter set.
func Default() Parameters {
	frac := func(v float64) *float64 { return &v }
	return Parameters{
		Financial: Financial{DiscountRate: 0.079, InterestRate: 0.029},
		LoadZone:  LoadZone{ExistingLocalTD: 99999, LocalTDAnnualCostPerMW: 0},
		Transmission: Transmission{
			CapitalCostPerMWKM: 621,
			LifetimeYears:      40,
			FixedOMFraction:    0,
			DistributionLoss:   0,
		},
		Fuels:    []string{"Coal", "NaturalGas", "Uranium"},
		NonFuels: []string{"Wind", "Solar", "Water", "Geothermal"},
		TypeFuel: map[string]string{
			"coal":          "Coal",
			"ng":            "NaturalGas",
			"nuclear":       "Uranium",
			"hydro":         "Water",
			"solar":         "Solar",
			"wind":          "Wind",
			"wind_offshore": "Wind",
			"geothermal":    "Geothermal",
		},
		AssumedPmins: map[string]*float64{
			"coal":     frac(0.3),
			"nuclear":  frac(0.95),
			DefaultKey: nil,
		},
		InvestmentCosts: map[string]float64{
			"coal":          4099000,
			"ng":            1060000,
			"nuclear":       6742000,
			"hydro":         5316000,
			"solar":         1331000,
			"wind":          1630000,
			"wind_offshore": 6542000,
			"geothermal":    5324000,
			DefaultKey:      1060000,
		},
		AssumedAges: map[string]float64{
			"coal":     40,
			"ng":       30,
			"nuclear":  60,
			"hydro":    100,
			"solar":    25,
			"wind":     25,
			DefaultKey: 30,
		},
		CapacityLimits: map[string]float64{
			"solar":    10000,
			"wind":     10000,
			DefaultKey: 5000,
		},
		BranchEfficiencies: map[string]float64{
			"115":      0.9,
			"138":      0.94,
			"161":      0.96,
			"230":      0.97,
			"345":      0.98,
			"500":      0.99,
			"765":      0.99,
			DefaultKey: 0.99,
		},
		FuelShareOfGencost: 0.7,
		VariableTypes:      []string{"hydro", "solar", "wind", "wind_offshore"},
		BaseloadTypes:      []string{"coal", "nuclear"},
	}
}

// Load returns the default parameters overridden by the YAML file at path.
// An empty path returns the defaults unchanged.
func Load(path string) (Parameters, error) {
	p := Default()
	if path == "" {
		return p, p.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("params: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("params: parse %s: %w", path, err)
	}
	return p, p.Validate()
}

// Validate checks that every required lookup table carries a default entry.
func (p Parameters) Validate() error {
	if _, ok := p.AssumedPmins[DefaultKey]; !ok {
		return errors.New("params: assumed_pmins missing default entry")
	}
	for name, table := range map[string]map[string]float64{
		"investment_costs":    p.InvestmentCosts,
		"assumed_ages":        p.AssumedAges,
		"capacity_limits":     p.CapacityLimits,
		"branch_efficiencies": p.BranchEfficiencies,
	} {
		if _, ok := table[DefaultKey]; !ok {
			return fmt.Errorf("params: %s missing default entry", name)
		}
	}
	if p.FuelShareOfGencost < 0 || p.FuelShareOfGencost > 1 {
		return fmt.Errorf("params: fuel_share_of_gencost %v outside [0, 1]", p.FuelShareOfGencost)
	}
	return nil
}

// AssumedPmin returns the assumed minimum operating fraction for a plant
// type, or nil when the native Pmin should be kept.
func (p Parameters) AssumedPmin(plantType string) *float64 {
	if frac, ok := p.AssumedPmins[plantType]; ok {
		return frac
	}
	return p.AssumedPmins[DefaultKey]
}

// InvestmentCost returns the overnight cost per MW for a plant type.
func (p Parameters) InvestmentCost(plantType string) float64 {
	return lookup(p.InvestmentCosts, plantType)
}

// AssumedAge returns the maximum age in years for a plant type.
func (p Parameters) AssumedAge(plantType string) float64 {
	return lookup(p.AssumedAges, plantType)
}

// CapacityLimit returns the buildable capacity limit for a plant type.
func (p Parameters) CapacityLimit(plantType string) float64 {
	return lookup(p.CapacityLimits, plantType)
}

// BranchEfficiency returns the efficiency of a branch given its terminal bus
// voltages; the voltage table applies only when both ends match.
func (p Parameters) BranchEfficiency(fromKV, toKV float64) float64 {
	if fromKV == toKV {
		if eff, ok := p.BranchEfficiencies[formatKV(fromKV)]; ok {
			return eff
		}
	}
	return p.BranchEfficiencies[DefaultKey]
}

// EnergySource returns the fuel or non-fuel energy source of a plant type.
// Types absent from the table report themselves as the energy source.
func (p Parameters) EnergySource(plantType string) string {
	if fuel, ok := p.TypeFuel[plantType]; ok {
		return fuel
	}
	return plantType
}

// IsFuel reports whether an energy source is a priced fuel.
func (p Parameters) IsFuel(source string) bool {
	for _, f := range p.Fuels {
		if f == source {
			return true
		}
	}
	return false
}

// IsVariable reports whether a plant type is profile-driven.
func (p Parameters) IsVariable(plantType string) bool {
	return contains(p.VariableTypes, plantType)
}

// IsBaseload reports whether a plant type is baseload.
func (p Parameters) IsBaseload(plantType string) bool {
	return contains(p.BaseloadTypes, plantType)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func lookup(table map[string]float64, key string) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return table[DefaultKey]
}

func formatKV(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
