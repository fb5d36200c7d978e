package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	storepg "gridswitch/internal/store/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestGridRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	schema := "gridswitch_it"
	mustExec(t, db, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))
	mustExec(t, db, fmt.Sprintf("CREATE SCHEMA %s", schema))
	defer db.ExecContext(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))

	for _, ddl := range []string{
		"CREATE TABLE %s.buses (id int, zone_id int, base_kv float8, pd float8, lat float8, lon float8)",
		"CREATE TABLE %s.plants (id int, bus_id int, plant_type text, pmin float8, pmax float8)",
		"CREATE TABLE %s.gencost (plant_id int, scenario text, c0 float8, c1 float8, c2 float8)",
		"CREATE TABLE %s.branches (id int, from_bus_id int, to_bus_id int, rate_a float8, x float8)",
		"CREATE TABLE %s.dclines (id int, from_bus_id int, to_bus_id int, pmax float8, pmin float8)",
		"CREATE TABLE %s.fuel_costs (bus_id int, fuel text, cost float8)",
		"CREATE TABLE %s.profiles (kind text, ts text, column_id int, value float8)",
	} {
		mustExec(t, db, fmt.Sprintf(ddl, schema))
	}

	mustExec(t, db, fmt.Sprintf("INSERT INTO %s.buses VALUES (1, 1, 230, 10, 47.6, -122.3), (2, 1, 230, 30, 45.5, -122.6)", schema))
	mustExec(t, db, fmt.Sprintf("INSERT INTO %s.plants VALUES (1, 1, 'ng', 10, 50), (2, 2, 'solar', 0, 20)", schema))
	mustExec(t, db, fmt.Sprintf("INSERT INTO %s.gencost VALUES (1, 'before', 100, 30, 0), (1, 'after', 100, 30, 0)", schema))
	mustExec(t, db, fmt.Sprintf("INSERT INTO %s.branches VALUES (1, 1, 2, 100, 0.04)", schema))
	mustExec(t, db, fmt.Sprintf("INSERT INTO %s.dclines VALUES (0, 1, 2, 40, -40)", schema))
	mustExec(t, db, fmt.Sprintf("INSERT INTO %s.fuel_costs VALUES (1, 'NaturalGas', 5)", schema))
	mustExec(t, db, fmt.Sprintf(`INSERT INTO %s.profiles VALUES
		('demand', '2019-01-01 00:00:00', 1, 100),
		('demand', '2019-01-01 01:00:00', 1, 200)`, schema))

	repo := storepg.NewGridRepository(db, storepg.WithSchema(schema))
	g, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(g.Buses) != 2 || len(g.Plants) != 2 || len(g.Branches) != 1 || len(g.DCLines) != 1 {
		t.Fatalf("grid shape: %d buses, %d plants, %d branches, %d dclines",
			len(g.Buses), len(g.Plants), len(g.Branches), len(g.DCLines))
	}
	if g.GenCost.Before[1].C1 != 30 {
		t.Fatalf("gencost: %+v", g.GenCost.Before[1])
	}
	if g.FuelCosts[0].Fuel != "NaturalGas" {
		t.Fatalf("fuel costs: %+v", g.FuelCosts)
	}

	profiles := storepg.NewProfileRepository(db, storepg.WithProfileSchema(schema))
	demand, err := profiles.Load(ctx, "demand")
	if err != nil {
		t.Fatalf("Load demand: %v", err)
	}
	if len(demand.Timestamps) != 2 {
		t.Fatalf("demand timestamps: %v", demand.Timestamps)
	}
	if got := demand.Column(1); got[1] != 200 {
		t.Fatalf("demand column: %v", got)
	}
}

func mustExec(t *testing.T, db *sql.DB, query string) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
