package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadAll(t *testing.T) []*Scenario {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		require.NoError(t, err, "load %s", p)
		scenarios = append(scenarios, s)
	}
	return scenarios
}

// TestScenarios runs every scenario under testdata/scenarios.
func TestScenarios(t *testing.T) {
	for _, s := range loadAll(t) {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))
			assert.Len(t, result.Steps, len(s.Flow))
		})
	}
}

func TestGoldenReports(t *testing.T) {
	for _, name := range []string{
		"lenient_clears_unresolved_reference",
		"resync_identical_content_writes_nothing",
	} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

// TestRunIsDeterministic runs the same scenario twice and compares the
// snapshots.
func TestRunIsDeterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "repeatable_group_grows.yaml"))
	require.NoError(t, err)

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, Snapshot(s.Name, first), Snapshot(s.Name, second))
}

func TestRunReportsUnmetExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: unmet
description: "Every expectation here is wrong"
source:
  site: www
  entities:
    - ref: container:///docs
    - ref: block:///docs/banner
      variant: text
      text: Welcome
flow:
  - walk: container://www/docs
    expect:
      error: TRANSPORT
      counts: {Created: 5}
      writes: 9
assertions:
  - type: report_contains
    ref: block://www/docs/banner
    outcome: Skipped
  - type: target_absent
    ref: block://www/docs/banner
  - type: target_state
    ref: block://www/docs/banner
    expect: {text: Goodbye}
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	joined := strings.Join(result.Errors, "\n")
	assert.Contains(t, joined, `expected error "TRANSPORT", got ""`)
	assert.Contains(t, joined, "expected 5 Created entries, got 2")
	assert.Contains(t, joined, "expected 9 target writes, got 2")
	assert.Contains(t, joined, "Assertion failed: report_contains")
	assert.Contains(t, joined, "Assertion failed: target_absent")
	assert.Contains(t, joined, `text = "Welcome"`)
	assert.Len(t, result.Errors, 6)
}

func TestRunFailsOnUnseedableFixture(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: orphan
description: "The page has no container"
source:
  site: www
  entities:
    - ref: page:///docs/intro
flow:
  - sync: page://www/docs/intro
`))
	require.NoError(t, err)

	_, err = Run(context.Background(), s)
	assert.ErrorContains(t, err, "failed to seed source")
}
