package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden record of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Outcome      string       `json:"outcome"`
	FailedRole   string       `json:"failed_role,omitempty"`
	Trace        []TraceEvent `json:"trace"`
	Sleeps       []string     `json:"sleeps"`
}

// Snapshot builds the golden record of r.
func (r *Result) Snapshot(name string) TraceSnapshot {
	sleeps := make([]string, len(r.Sleeps))
	for i, d := range r.Sleeps {
		sleeps[i] = d.String()
	}
	trace := r.Trace
	if trace == nil {
		trace = []TraceEvent{}
	}
	return TraceSnapshot{
		ScenarioName: name,
		Outcome:      r.Outcome,
		FailedRole:   r.FailedRole,
		Trace:        trace,
		Sleeps:       sleeps,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t, scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares result's snapshot against the golden file
// named scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := json.MarshalIndent(result.Snapshot(scenarioName), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
