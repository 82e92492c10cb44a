package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunGolden executes a scenario file and compares its trace against a
// golden file named after the scenario.
//
// Golden files live in testdata/golden/<name>.golden relative to the
// calling test. Run with -update to record new traces:
//
//	go test ./internal/harness -update
//
// The comparison covers the trace only, not the assertion results; a
// scenario whose steps misbehave fails before the golden check.
func RunGolden(t *testing.T, scenarioPath string) error {
	t.Helper()

	scenario, err := LoadScenario(scenarioPath)
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}

	result, err := Run(scenario)
	if err != nil {
		return fmt.Errorf("failed to run scenario: %w", err)
	}
	if !result.Pass {
		return fmt.Errorf("scenario failed: %v", result.Errors)
	}

	traceJSON, err := json.MarshalIndent(result.Trace, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}
