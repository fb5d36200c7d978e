// Package solution parses the external solver's flat solution dictionary:
// one entry per decision-variable or constraint instantiation, keyed by
// "Name[param1,...,paramN]" strings.
package solution

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gridswitch/internal/tables"
)

// Solution holds the solver output maps the pipeline consumes.
type Solution struct {
	Variables   map[string]Variable   `json:"variables"`
	Constraints map[string]Constraint `json:"constraints"`
}

// Variable is one solved decision-variable instantiation.
type Variable struct {
	Value float64 `json:"Value"`
}

// Constraint carries the dual value of one constraint instantiation.
type Constraint struct {
	Dual float64 `json:"Dual"`
}

type solutionFile struct {
	Solution Solution `json:"solution"`
}

// Read loads a solver solution file.
func Read(path string) (*Solution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("solution: read %s: %w", path, err)
	}
	var file solutionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("solution: parse %s: %w", path, err)
	}
	return &file.Solution, nil
}

// VariableValues returns the variable entries as a flat name→value map.
func (s *Solution) VariableValues() map[string]float64 {
	out := make(map[string]float64, len(s.Variables))
	for key, v := range s.Variables {
		out[key] = v.Value
	}
	return out
}

// DualValues returns the constraint entries as a flat name→dual map.
func (s *Solution) DualValues() map[string]float64 {
	out := make(map[string]float64, len(s.Constraints))
	for key, c := range s.Constraints {
		out[key] = c.Dual
	}
	return out
}

// MatchVariables extracts every entry whose key matches pattern into a table
// of the pattern's named capture groups plus a "capacity" column holding the
// entry value. No matching entries yields an empty table with the expected
// header, never an error: optional decision-variable families may be entirely
// unused in a given run. Rows are ordered by key for determinism.
func MatchVariables(entries map[string]float64, pattern string, columns []string) (*tables.Table, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("solution: bad pattern %q: %w", pattern, err)
	}
	header := append(append([]string{}, columns...), "capacity")
	t := tables.New("matched_variables", header...)

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	groupIndex := make(map[string]int)
	for i, name := range re.SubexpNames() {
		if name != "" {
			groupIndex[name] = i
		}
	}
	for _, key := range keys {
		m := re.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		row := make([]string, 0, len(header))
		for _, col := range columns {
			idx, ok := groupIndex[col]
			if !ok {
				return nil, fmt.Errorf("solution: pattern %q has no capture group %q", pattern, col)
			}
			row = append(row, m[idx])
		}
		row = append(row, tables.Float(entries[key]))
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Build is one build decision: the optimizer's chosen capacity for an entity
// in an investment year.
type Build struct {
	Year     int
	Tag      string
	Capacity float64
}

// BuildDecisions holds the three build-decision families of one solver run.
// A family the model never instantiated is an empty slice, not an error.
type BuildDecisions struct {
	Gen     []Build
	Tx      []Build
	Storage []Build
}

const (
	genPattern     = `^BuildGen\[(?P<gen_id>[a-z0-9]+),(?P<year>[0-9]+)\]$`
	txPattern      = `^BuildTx\[(?P<tx_id>[a-z0-9]+),(?P<year>[0-9]+)\]$`
	storagePattern = `^BuildStorageEnergy\[(?P<storage_id>[a-z0-9]+),(?P<year>[0-9]+)\]$`
)

// ExtractBuildDecisions parses the generation, transmission and
// storage-energy build variables out of a solution.
func ExtractBuildDecisions(s *Solution) (BuildDecisions, error) {
	entries := s.VariableValues()
	var out BuildDecisions
	for _, family := range []struct {
		pattern string
		idCol   string
		dest    *[]Build
	}{
		{genPattern, "gen_id", &out.Gen},
		{txPattern, "tx_id", &out.Tx},
		{storagePattern, "storage_id", &out.Storage},
	} {
		table, err := MatchVariables(entries, family.pattern, []string{family.idCol, "year"})
		if err != nil {
			return BuildDecisions{}, err
		}
		builds, err := buildsFromTable(table)
		if err != nil {
			return BuildDecisions{}, err
		}
		*family.dest = builds
	}
	return out, nil
}

func buildsFromTable(t *tables.Table) ([]Build, error) {
	builds := make([]Build, 0, t.Len())
	for _, row := range t.Rows {
		year, err := tables.ParseInt(row[1])
		if err != nil {
			return nil, err
		}
		capacity, err := tables.ParseFloat(row[2])
		if err != nil {
			return nil, err
		}
		builds = append(builds, Build{Year: year, Tag: row[0], Capacity: capacity})
	}
	return builds, nil
}
