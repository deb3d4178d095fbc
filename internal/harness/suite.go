package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/statebox/internal/catalog"
)

// SuiteResult summarises a directory of scenarios.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Results        []ScenarioOutcome `json:"results"`
}

// ScenarioOutcome is the result of one scenario file in a suite.
type ScenarioOutcome struct {
	Path   string   `json:"path"`
	Name   string   `json:"name,omitempty"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// Pass reports whether every scenario in the suite passed.
func (r *SuiteResult) Pass() bool {
	return r.Failed == 0
}

// FindScenarios returns the .yaml and .yml files directly under dir, sorted.
// A path naming a single file is returned as is.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// RunSuite loads and runs every scenario under path against cat. Load and
// execution failures are recorded per scenario rather than aborting the
// suite.
func RunSuite(path string, cat *catalog.Catalog) (*SuiteResult, error) {
	files, err := FindScenarios(path)
	if err != nil {
		return nil, err
	}

	suite := &SuiteResult{Results: []ScenarioOutcome{}}
	for _, file := range files {
		suite.TotalScenarios++
		outcome := runOne(file, cat)
		if outcome.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
		suite.Results = append(suite.Results, outcome)
	}
	return suite, nil
}

func runOne(path string, cat *catalog.Catalog) ScenarioOutcome {
	outcome := ScenarioOutcome{Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return outcome
	}
	outcome.Name = scenario.Name

	result, err := RunWithCatalog(scenario, cat)
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
		return outcome
	}

	outcome.Pass = result.Pass
	if !result.Pass {
		outcome.Errors = result.Errors
	}
	return outcome
}
