// Package pipeline orchestrates the two legs of a run: prepare (grid +
// profiles → optimizer input file set + persisted state) and extract
// (solver output + state → per-year grids, hourly dispatch series and
// reconstructed profiles). Each
// stage runs to completion before the next begins; partial-failure recovery
// is the caller's responsibility.
package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gridswitch/internal/convert/export"
	"gridswitch/internal/convert/gencost"
	"gridswitch/internal/convert/temporal"
	"gridswitch/internal/grid"
	"gridswitch/internal/grid/identifiers"
	"gridswitch/internal/observability/metrics"
	"gridswitch/internal/params"
	"gridswitch/internal/reconstruct"
	"gridswitch/internal/report"
	"gridswitch/internal/solution"
	"gridswitch/internal/tables"
)

const gridStateFile = "grid.json"

// Pipeline runs the conversion legs with one parameter set.
type Pipeline struct {
	params params.Parameters
	logger *log.Logger
}

// New constructs a pipeline.
func New(p params.Parameters, logger *log.Logger) (*Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	return &Pipeline{params: p, logger: logger}, nil
}

// PrepareRequest carries everything the forward leg consumes.
type PrepareRequest struct {
	Grid       *grid.Grid
	Profiles   grid.ProfileSet
	Timepoints []temporal.Timepoint
	Mapping    temporal.Mapping
	BaseYear   int
	Periods    []export.Period

	// InputDir receives the optimizer input CSVs; StateDir receives the
	// persisted intermediate state for the extraction leg.
	InputDir string
	StateDir string

	// WorkbookPath, when set, additionally renders every input table into
	// one XLSX workbook for review.
	WorkbookPath string
}

// Prepare converts the grid and profiles into the optimizer input file set
// and persists the state the extraction leg needs.
func (p *Pipeline) Prepare(req PrepareRequest) error {
	defer metrics.ObserveStage("prepare", time.Now())
	if req.Grid == nil {
		return fmt.Errorf("pipeline: grid is required")
	}
	if len(req.Periods) == 0 {
		return fmt.Errorf("pipeline: at least one investment period is required")
	}
	for _, dir := range []string{req.InputDir, req.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("pipeline: create %s: %w", dir, err)
		}
	}

	// Validate the timeseries relation before building any output table.
	timeseriesTable, err := temporal.BuildTimeseriesTable(req.Timepoints, req.Mapping)
	if err != nil {
		return err
	}

	lin, err := gencost.Linearize(req.Grid.Plants, req.Grid.GenCost.Before, p.params)
	if err != nil {
		return err
	}
	invYears := export.Years(req.Periods)

	genProjects, err := export.BuildGenerationProjectsInfo(req.Grid, lin, p.params)
	if err != nil {
		return err
	}
	genBuildCosts, err := export.BuildGenBuildCosts(req.Grid.Plants, lin, p.params, req.BaseYear, invYears)
	if err != nil {
		return err
	}
	transmissionLines, err := export.BuildTransmissionLines(req.Grid, p.params)
	if err != nil {
		return err
	}
	loads, err := temporal.BuildLoads(req.Grid.Buses, req.Profiles.Demand, req.Mapping)
	if err != nil {
		return err
	}
	capacityFactors, err := temporal.BuildVariableCapacityFactors(req.Profiles, req.Grid.Plants, req.Mapping)
	if err != nil {
		return err
	}

	inputTables := []*tables.Table{
		export.BuildFinancials(p.params, req.BaseYear),
		export.BuildFuels(p.params),
		export.BuildFuelCost(req.Grid, p.params, req.BaseYear, invYears),
		genProjects,
		genBuildCosts,
		export.BuildGenBuildPredetermined(req.Grid.Plants, req.BaseYear),
		export.BuildLoadZones(req.Grid.Buses, p.params),
		export.BuildNonFuelEnergySource(p.params),
		export.BuildPeriods(req.Periods),
		transmissionLines,
		export.BuildTransParams(p.params),
		temporal.BuildTimepointsTable(req.Timepoints),
		timeseriesTable,
		loads,
		capacityFactors,
	}
	for _, t := range inputTables {
		if err := t.WriteCSV(req.InputDir); err != nil {
			return err
		}
		metrics.ObserveTableWritten(t.Name, t.Len())
		p.logger.Printf("prepare: wrote %s.csv (%d rows)", t.Name, t.Len())
	}

	if err := req.Grid.WriteJSON(filepath.Join(req.StateDir, gridStateFile)); err != nil {
		return err
	}
	if err := temporal.WriteState(req.StateDir, req.Timepoints, req.Mapping); err != nil {
		return err
	}
	p.logger.Printf("prepare: persisted state to %s", req.StateDir)

	if req.WorkbookPath != "" {
		workbook, err := report.BuildInputWorkbook(inputTables)
		if err != nil {
			return fmt.Errorf("pipeline: workbook: %w", err)
		}
		if err := os.WriteFile(req.WorkbookPath, workbook, 0o644); err != nil {
			return fmt.Errorf("pipeline: workbook: %w", err)
		}
		p.logger.Printf("prepare: wrote workbook %s", req.WorkbookPath)
	}
	return nil
}

// ExtractRequest carries everything the backward leg consumes.
type ExtractRequest struct {
	ResultsPath string
	StateDir    string
	InputDir    string

	// ReportPath, when set, additionally renders a PDF summary of the
	// build decisions.
	ReportPath string
	// Periods are only used for the report header; extraction itself
	// derives years from the persisted timepoints.
	Periods []export.Period
}

// ExtractResult is the outcome of the backward leg.
type ExtractResult struct {
	Grids        map[int]*grid.Grid
	Profiles     map[string]map[int]*grid.Profile
	Dispatch     temporal.Dispatch
	Decisions    solution.BuildDecisions
	PlantMapping map[int]string
}

// Extract parses solver output and reconstructs per-year grids and
// full-resolution input profiles.
func (p *Pipeline) Extract(req ExtractRequest) (*ExtractResult, error) {
	defer metrics.ObserveStage("extract", time.Now())

	original, err := grid.ReadJSON(filepath.Join(req.StateDir, gridStateFile))
	if err != nil {
		return nil, err
	}
	timepoints, mapping, err := temporal.ReadState(req.StateDir)
	if err != nil {
		return nil, err
	}
	sol, err := solution.Read(req.ResultsPath)
	if err != nil {
		return nil, err
	}
	decisions, err := solution.ExtractBuildDecisions(sol)
	if err != nil {
		metrics.ObserveDecodeError()
		return nil, err
	}
	p.logger.Printf("extract: %d generation, %d transmission, %d storage build decisions",
		len(decisions.Gen), len(decisions.Tx), len(decisions.Storage))

	// One authoritative generator namespace for the whole leg: existing
	// tags then expansion tags, mirroring the exporter's ordering.
	existingTags, expansionTags := identifiers.MakePlantTags(original.PlantIDs())
	plantMapping, _, err := identifiers.RecoverPlantIndices(append(existingTags, expansionTags...), -1)
	if err != nil {
		metrics.ObserveDecodeError()
		return nil, err
	}

	years := temporal.Periods(timepoints)
	grids, err := reconstruct.Apply(original, decisions, years, plantMapping)
	if err != nil {
		return nil, err
	}
	for range grids {
		metrics.ObserveGridReconstructed()
	}
	p.logger.Printf("extract: reconstructed %d per-year grids", len(grids))

	loads, err := tables.ReadCSV(filepath.Join(req.InputDir, "loads.csv"),
		"LOAD_ZONE", "TIMEPOINT", "zone_demand_mw")
	if err != nil {
		return nil, err
	}
	capacityFactors, err := tables.ReadCSV(filepath.Join(req.InputDir, "variable_capacity_factors.csv"),
		"GENERATION_PROJECT", "timepoint", "gen_max_capacity_factor")
	if err != nil {
		return nil, err
	}
	profiles, err := temporal.ReconstructProfiles(grids, loads, capacityFactors, mapping, plantMapping, p.params)
	if err != nil {
		return nil, err
	}

	dispatch, err := temporal.ExtractDispatch(
		sol.VariableValues(), sol.DualValues(), grids, timepoints, mapping, plantMapping)
	if err != nil {
		return nil, err
	}
	p.logger.Printf("extract: hourly dispatch for %d years (generation %t, flow %t, lmp %t)",
		len(grids), dispatch.PG != nil, dispatch.PF != nil, dispatch.LMP != nil)

	if req.ReportPath != "" {
		summary, err := report.BuildRunReportPDF(req.Periods, decisions)
		if err != nil {
			return nil, fmt.Errorf("pipeline: report: %w", err)
		}
		if err := os.WriteFile(req.ReportPath, summary, 0o644); err != nil {
			return nil, fmt.Errorf("pipeline: report: %w", err)
		}
		p.logger.Printf("extract: wrote report %s", req.ReportPath)
	}

	return &ExtractResult{
		Grids:        grids,
		Profiles:     profiles,
		Dispatch:     dispatch,
		Decisions:    decisions,
		PlantMapping: plantMapping,
	}, nil
}
