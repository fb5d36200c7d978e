package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gridswitch/internal/convert/export"
	"gridswitch/internal/convert/temporal"
	"gridswitch/internal/grid"
	"gridswitch/internal/observability/metrics"
	"gridswitch/internal/params"
	"gridswitch/internal/pipeline"
	storepg "gridswitch/internal/store/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	prm, err := params.Load(cfg.ParamsFile)
	if err != nil {
		logger.Fatalf("params error: %v", err)
	}

	metrics.Init()
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Printf("metrics listening on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Printf("metrics listener error: %v", err)
			}
		}()
	}

	pipe, err := pipeline.New(prm, logger)
	if err != nil {
		logger.Fatalf("pipeline error: %v", err)
	}

	switch cfg.Mode {
	case "prepare":
		if err := runPrepare(cfg, pipe, logger); err != nil {
			logger.Fatalf("prepare error: %v", err)
		}
	case "extract":
		if err := runExtract(cfg, pipe, logger); err != nil {
			logger.Fatalf("extract error: %v", err)
		}
	default:
		logger.Fatalf("MODE must be prepare or extract, got %q", cfg.Mode)
	}
}

func runPrepare(cfg config, pipe *pipeline.Pipeline, logger *log.Logger) error {
	g, profiles, err := loadModel(cfg, logger)
	if err != nil {
		return err
	}
	timepoints, err := temporal.ReadTimepointsCSV(cfg.TimepointsFile)
	if err != nil {
		return err
	}
	mapping, err := temporal.ReadMappingCSV(cfg.MappingFile)
	if err != nil {
		return err
	}
	periods, err := parsePeriods(cfg.InvPeriods)
	if err != nil {
		return err
	}
	return pipe.Prepare(pipeline.PrepareRequest{
		Grid:         g,
		Profiles:     profiles,
		Timepoints:   timepoints,
		Mapping:      mapping,
		BaseYear:     cfg.BaseYear,
		Periods:      periods,
		InputDir:     cfg.InputDir,
		StateDir:     cfg.StateDir,
		WorkbookPath: cfg.WorkbookPath,
	})
}

func runExtract(cfg config, pipe *pipeline.Pipeline, logger *log.Logger) error {
	var periods []export.Period
	if cfg.ReportPath != "" {
		parsed, err := parsePeriods(cfg.InvPeriods)
		if err != nil {
			return err
		}
		periods = parsed
	}
	result, err := pipe.Extract(pipeline.ExtractRequest{
		ResultsPath: cfg.ResultsFile,
		StateDir:    cfg.StateDir,
		InputDir:    cfg.InputDir,
		ReportPath:  cfg.ReportPath,
		Periods:     periods,
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", cfg.OutputDir, err)
	}
	for year, g := range result.Grids {
		path := filepath.Join(cfg.OutputDir, fmt.Sprintf("grid_%d.json", year))
		if err := g.WriteJSON(path); err != nil {
			return err
		}
		logger.Printf("extract: wrote %s", path)
	}
	for resource, byYear := range result.Profiles {
		for year, profile := range byYear {
			path := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%d.csv", resource, year))
			if err := profile.WriteProfileCSV(path); err != nil {
				return err
			}
		}
	}
	dispatchSeries := map[string]map[int]*grid.Profile{
		"pg":        result.Dispatch.PG,
		"pf":        result.Dispatch.PF,
		"dcline_pf": result.Dispatch.DCLinePF,
		"lmp":       result.Dispatch.LMP,
	}
	for name, byYear := range dispatchSeries {
		for year, profile := range byYear {
			path := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%d.csv", name, year))
			if err := profile.WriteProfileCSV(path); err != nil {
				return err
			}
			logger.Printf("extract: wrote %s", path)
		}
	}
	return nil
}

func loadModel(cfg config, logger *log.Logger) (*grid.Grid, grid.ProfileSet, error) {
	if cfg.GridSource == "postgres" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, grid.ProfileSet{}, fmt.Errorf("db open: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return nil, grid.ProfileSet{}, fmt.Errorf("db ping: %w", err)
		}
		ctx := context.Background()
		g, err := storepg.NewGridRepository(db, storepg.WithSchema(cfg.DatabaseSchema)).Load(ctx)
		if err != nil {
			return nil, grid.ProfileSet{}, err
		}
		profiles, err := storepg.NewProfileRepository(db, storepg.WithProfileSchema(cfg.DatabaseSchema)).LoadSet(ctx)
		if err != nil {
			return nil, grid.ProfileSet{}, err
		}
		logger.Printf("loaded grid from postgres: %d buses, %d plants", len(g.Buses), len(g.Plants))
		return g, profiles, nil
	}

	g, err := grid.ReadJSON(cfg.GridFile)
	if err != nil {
		return nil, grid.ProfileSet{}, err
	}
	var profiles grid.ProfileSet
	for _, src := range []struct {
		path string
		dest **grid.Profile
	}{
		{cfg.DemandFile, &profiles.Demand},
		{cfg.HydroFile, &profiles.Hydro},
		{cfg.SolarFile, &profiles.Solar},
		{cfg.WindFile, &profiles.Wind},
	} {
		if src.path == "" {
			continue
		}
		profile, err := grid.ReadProfileCSV(src.path)
		if err != nil {
			return nil, grid.ProfileSet{}, err
		}
		*src.dest = profile
	}
	logger.Printf("loaded grid from %s: %d buses, %d plants", cfg.GridFile, len(g.Buses), len(g.Plants))
	return g, profiles, nil
}

// parsePeriods parses "2030:2025-2035,2040:2036-2045" into investment periods.
func parsePeriods(raw string) ([]export.Period, error) {
	if raw == "" {
		return nil, fmt.Errorf("INV_PERIODS is required, format year:start-end[,year:start-end...]")
	}
	var periods []export.Period
	for _, part := range strings.Split(raw, ",") {
		var p export.Period
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d:%d-%d", &p.Year, &p.Start, &p.End); err != nil {
			return nil, fmt.Errorf("bad investment period %q: %w", part, err)
		}
		periods = append(periods, p)
	}
	return periods, nil
}

type config struct {
	Mode           string
	ParamsFile     string
	GridSource     string
	DatabaseURL    string
	DatabaseSchema string
	GridFile       string
	DemandFile     string
	HydroFile      string
	SolarFile      string
	WindFile       string
	TimepointsFile string
	MappingFile    string
	BaseYear       int
	InvPeriods     string
	InputDir       string
	StateDir       string
	ResultsFile    string
	OutputDir      string
	WorkbookPath   string
	ReportPath     string
	MetricsAddr    string
}

func loadConfig() config {
	cfg := config{
		Mode:           getenvDefault("MODE", "prepare"),
		ParamsFile:     getenvDefault("PARAMS_FILE", ""),
		GridSource:     getenvDefault("GRID_SOURCE", "file"),
		DatabaseURL:    getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		DatabaseSchema: getenvDefault("DATABASE_SCHEMA", "grid"),
		GridFile:       getenvDefault("GRID_FILE", "grid.json"),
		DemandFile:     getenvDefault("DEMAND_FILE", ""),
		HydroFile:      getenvDefault("HYDRO_FILE", ""),
		SolarFile:      getenvDefault("SOLAR_FILE", ""),
		WindFile:       getenvDefault("WIND_FILE", ""),
		TimepointsFile: getenvDefault("TIMEPOINTS_FILE", "timepoints.csv"),
		MappingFile:    getenvDefault("MAPPING_FILE", "timestamp_to_timepoints.csv"),
		BaseYear:       getenvIntDefault("BASE_YEAR", 2019),
		InvPeriods:     getenvDefault("INV_PERIODS", ""),
		InputDir:       getenvDefault("INPUT_DIR", "inputs"),
		StateDir:       getenvDefault("STATE_DIR", "state"),
		ResultsFile:    getenvDefault("RESULTS_FILE", "results.json"),
		OutputDir:      getenvDefault("OUTPUT_DIR", "outputs"),
		WorkbookPath:   getenvDefault("WORKBOOK_PATH", ""),
		ReportPath:     getenvDefault("REPORT_PATH", ""),
		MetricsAddr:    getenvDefault("METRICS_ADDR", ""),
	}
	if cfg.GridSource == "postgres" && cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required when GRID_SOURCE=postgres")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
