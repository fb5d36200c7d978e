// Package postgres loads grid tables and hourly profiles from a Postgres
// database, for deployments where the grid model lives in a relational store
// rather than on disk.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gridswitch/internal/grid"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GridRepository reads a full grid model.
type GridRepository struct {
	db     DBTX
	schema string
}

// NewGridRepository constructs a repository.
func NewGridRepository(db DBTX, opts ...GridOption) *GridRepository {
	repo := &GridRepository{db: db, schema: "grid"}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// GridOption configures the repository.
type GridOption func(*GridRepository)

// WithSchema overrides the default schema name.
func WithSchema(schema string) GridOption {
	return func(repo *GridRepository) {
		if schema != "" {
			repo.schema = schema
		}
	}
}

// Load reads every grid sub-table.
func (r *GridRepository) Load(ctx context.Context) (*grid.Grid, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("grid repo: nil db")
	}
	g := &grid.Grid{GenCost: grid.GenCost{
		Before: make(map[int]grid.CostCurve),
		After:  make(map[int]grid.CostCurve),
	}}

	if err := r.loadBuses(ctx, g); err != nil {
		return nil, err
	}
	if err := r.loadPlants(ctx, g); err != nil {
		return nil, err
	}
	if err := r.loadGenCost(ctx, g); err != nil {
		return nil, err
	}
	if err := r.loadBranches(ctx, g); err != nil {
		return nil, err
	}
	if err := r.loadDCLines(ctx, g); err != nil {
		return nil, err
	}
	if err := r.loadFuelCosts(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GridRepository) loadBuses(ctx context.Context, g *grid.Grid) error {
	query := fmt.Sprintf(`
SELECT id, zone_id, base_kv, pd, lat, lon
FROM %s.buses
ORDER BY id`, r.schema)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("grid repo: buses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b grid.Bus
		if err := rows.Scan(&b.ID, &b.ZoneID, &b.BaseKV, &b.Pd, &b.Lat, &b.Lon); err != nil {
			return fmt.Errorf("grid repo: buses: %w", err)
		}
		g.Buses = append(g.Buses, b)
	}
	return rows.Err()
}

func (r *GridRepository) loadPlants(ctx context.Context, g *grid.Grid) error {
	query := fmt.Sprintf(`
SELECT id, bus_id, plant_type, pmin, pmax
FROM %s.plants
ORDER BY id`, r.schema)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("grid repo: plants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p grid.Plant
		if err := rows.Scan(&p.ID, &p.BusID, &p.Type, &p.Pmin, &p.Pmax); err != nil {
			return fmt.Errorf("grid repo: plants: %w", err)
		}
		g.Plants = append(g.Plants, p)
	}
	return rows.Err()
}

func (r *GridRepository) loadGenCost(ctx context.Context, g *grid.Grid) error {
	query := fmt.Sprintf(`
SELECT plant_id, scenario, c0, c1, c2
FROM %s.gencost
ORDER BY plant_id`, r.schema)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("grid repo: gencost: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var plantID int
		var scenario string
		var curve grid.CostCurve
		if err := rows.Scan(&plantID, &scenario, &curve.C0, &curve.C1, &curve.C2); err != nil {
			return fmt.Errorf("grid repo: gencost: %w", err)
		}
		switch scenario {
		case "before":
			g.GenCost.Before[plantID] = curve
		case "after":
			g.GenCost.After[plantID] = curve
		default:
			return fmt.Errorf("grid repo: gencost: unknown scenario %q", scenario)
		}
	}
	return rows.Err()
}

func (r *GridRepository) loadBranches(ctx context.Context, g *grid.Grid) error {
	query := fmt.Sprintf(`
SELECT id, from_bus_id, to_bus_id, rate_a, x
FROM %s.branches
ORDER BY id`, r.schema)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("grid repo: branches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b grid.Branch
		if err := rows.Scan(&b.ID, &b.FromBusID, &b.ToBusID, &b.RateA, &b.X); err != nil {
			return fmt.Errorf("grid repo: branches: %w", err)
		}
		g.Branches = append(g.Branches, b)
	}
	return rows.Err()
}

func (r *GridRepository) loadDCLines(ctx context.Context, g *grid.Grid) error {
	query := fmt.Sprintf(`
SELECT id, from_bus_id, to_bus_id, pmax, pmin
FROM %s.dclines
ORDER BY id`, r.schema)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("grid repo: dclines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d grid.DCLine
		if err := rows.Scan(&d.ID, &d.FromBusID, &d.ToBusID, &d.Pmax, &d.Pmin); err != nil {
			return fmt.Errorf("grid repo: dclines: %w", err)
		}
		g.DCLines = append(g.DCLines, d)
	}
	return rows.Err()
}

func (r *GridRepository) loadFuelCosts(ctx context.Context, g *grid.Grid) error {
	query := fmt.Sprintf(`
SELECT bus_id, fuel, cost
FROM %s.fuel_costs
ORDER BY bus_id, fuel`, r.schema)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("grid repo: fuel costs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec grid.FuelCostRecord
		if err := rows.Scan(&rec.BusID, &rec.Fuel, &rec.Cost); err != nil {
			return fmt.Errorf("grid repo: fuel costs: %w", err)
		}
		g.FuelCosts = append(g.FuelCosts, rec)
	}
	return rows.Err()
}

// ProfileRepository reads hourly profiles stored long-form: one row per
// (kind, timestamp, column, value), timestamps in chronological order.
type ProfileRepository struct {
	db     DBTX
	schema string
}

// NewProfileRepository constructs a repository.
func NewProfileRepository(db DBTX, opts ...ProfileOption) *ProfileRepository {
	repo := &ProfileRepository{db: db, schema: "grid"}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ProfileOption configures the repository.
type ProfileOption func(*ProfileRepository)

// WithProfileSchema overrides the default schema name.
func WithProfileSchema(schema string) ProfileOption {
	return func(repo *ProfileRepository) {
		if schema != "" {
			repo.schema = schema
		}
	}
}

// Load reads one profile kind ("demand", "hydro", "solar" or "wind").
func (r *ProfileRepository) Load(ctx context.Context, kind string) (*grid.Profile, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("profile repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT ts, column_id, value
FROM %s.profiles
WHERE kind = $1
ORDER BY ts, column_id`, r.schema)
	rows, err := r.db.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("profile repo: %s: %w", kind, err)
	}
	defer rows.Close()

	var timestamps []string
	seen := make(map[string]bool)
	columns := make(map[int][]float64)
	type record struct {
		ts     string
		column int
		value  float64
	}
	var records []record
	for rows.Next() {
		var rec record
		if err := rows.Scan(&rec.ts, &rec.column, &rec.value); err != nil {
			return nil, fmt.Errorf("profile repo: %s: %w", kind, err)
		}
		if !seen[rec.ts] {
			seen[rec.ts] = true
			timestamps = append(timestamps, rec.ts)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile repo: %s: %w", kind, err)
	}

	rowOf := make(map[string]int, len(timestamps))
	for i, ts := range timestamps {
		rowOf[ts] = i
	}
	for _, rec := range records {
		if columns[rec.column] == nil {
			columns[rec.column] = make([]float64, len(timestamps))
		}
		columns[rec.column][rowOf[rec.ts]] = rec.value
	}

	profile := grid.NewProfile(timestamps)
	for id, values := range columns {
		if err := profile.SetColumn(id, values); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// LoadSet reads all four profile kinds.
func (r *ProfileRepository) LoadSet(ctx context.Context) (grid.ProfileSet, error) {
	var set grid.ProfileSet
	for kind, dest := range map[string]**grid.Profile{
		"demand": &set.Demand,
		"hydro":  &set.Hydro,
		"solar":  &set.Solar,
		"wind":   &set.Wind,
	} {
		profile, err := r.Load(ctx, kind)
		if err != nil {
			return grid.ProfileSet{}, err
		}
		*dest = profile
	}
	return set, nil
}
