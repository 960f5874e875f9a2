package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/assetsync/internal/asset"
)

// ReportSnapshot captures the reports of a scenario execution.
// It is serialized as canonical JSON for deterministic comparison.
// Entity ids never appear, so snapshots are stable across stores.
type ReportSnapshot struct {
	Scenario string         `json:"scenario"`
	RunID    string         `json:"run_id"`
	Steps    []StepSnapshot `json:"steps"`
}

// StepSnapshot is the report of one flow step.
type StepSnapshot struct {
	Root    string          `json:"root"`
	Policy  string          `json:"policy"`
	Error   string          `json:"error,omitempty"`
	Entries []EntrySnapshot `json:"entries"`
}

// EntrySnapshot is one report entry.
type EntrySnapshot struct {
	Seq     int64    `json:"seq"`
	Ref     string   `json:"ref"`
	Outcome string   `json:"outcome"`
	Detail  string   `json:"detail,omitempty"`
	Notes   []string `json:"notes,omitempty"`
}

// Snapshot builds the snapshot of a result.
func Snapshot(name string, result *Result) ReportSnapshot {
	snap := ReportSnapshot{Scenario: name, Steps: []StepSnapshot{}}
	for _, sr := range result.Steps {
		if sr.Report == nil {
			snap.Steps = append(snap.Steps, StepSnapshot{Error: sr.ErrorCode()})
			continue
		}
		snap.RunID = sr.Report.RunID
		step := StepSnapshot{
			Root:    sr.Report.Root.String(),
			Policy:  string(sr.Report.Policy),
			Error:   sr.ErrorCode(),
			Entries: make([]EntrySnapshot, 0, len(sr.Report.Entries)),
		}
		for _, e := range sr.Report.Entries {
			step.Entries = append(step.Entries, EntrySnapshot{
				Seq:     e.Seq,
				Ref:     e.Ref.String(),
				Outcome: string(e.Outcome),
				Detail:  e.Detail,
				Notes:   e.Notes,
			})
		}
		snap.Steps = append(snap.Steps, step)
	}
	return snap
}

// RunWithGolden executes a scenario and compares its reports against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the reports don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's reports against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := asset.MarshalCanonical(Snapshot(scenarioName, result))
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
