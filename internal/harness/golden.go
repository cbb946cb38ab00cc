package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/contagion/internal/fingerprint"
)

// RunSnapshot captures the observable output of a scenario execution.
// It is serialized as canonical JSON for deterministic comparison.
type RunSnapshot struct {
	ScenarioName string
	Result       *Result
}

func (s *RunSnapshot) value() fingerprint.Object {
	return fingerprint.Object{
		"scenario_name": fingerprint.String(s.ScenarioName),
		"series":        fingerprint.SeriesValue(s.Result.Run.Series()),
		"trace":         fingerprint.TraceValue(s.Result.Run.Transitions),
	}
}

// RunWithGolden executes a scenario and compares its series and trace
// against a golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails or the scenario expected an
// error. Test failure (via goldie) occurs if the output doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

// GoldenBytes returns the canonical golden form of a result: the scenario
// name, the size series and the transition trace.
func GoldenBytes(scenarioName string, result *Result) ([]byte, error) {
	if result.Run == nil {
		return nil, fmt.Errorf("scenario %s produced no run", scenarioName)
	}
	snapshot := RunSnapshot{ScenarioName: scenarioName, Result: result}
	return fingerprint.MarshalCanonical(snapshot.value())
}
