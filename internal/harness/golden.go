package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/askflow/internal/model"
)

// Snapshot captures the outcome trace and notification trace of a
// scenario execution. All fields use canonical JSON serialization for
// deterministic comparison.
type Snapshot struct {
	ScenarioName  string
	Trace         []TraceEvent
	Notifications []NotificationRecord
}

// toCanonicalMap converts a Snapshot to a map[string]any so it can go
// through model.MarshalCanonical, which only handles plain maps,
// slices and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"op":      event.Op,
			"outcome": event.Outcome,
		}
		if event.Actor != "" {
			eventMap["actor"] = event.Actor
		}
		if event.Name != "" {
			eventMap["name"] = event.Name
		}
		traceList[i] = eventMap
	}

	notifList := make([]any, len(s.Notifications))
	for i, n := range s.Notifications {
		notifList[i] = map[string]any{
			"user":    n.User,
			"type":    n.Type,
			"related": n.Related,
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"notifications": notifList,
	}
}

// RunWithGolden executes a scenario and compares its traces against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails at the harness level.
// Expect or assertion failures and golden mismatches fail the test via
// t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}

	snapshot := Snapshot{
		ScenarioName:  scenario.Name,
		Trace:         result.Trace,
		Notifications: result.Notifications,
	}
	data, err := model.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
