package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/engine"
	"github.com/roach88/assetsync/internal/fixture"
)

// Scenario defines a sync scenario.
// A scenario seeds a source and a target instance, runs one or more walks
// or single-entity syncs between them, and asserts on the reports and on
// the final target state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID is stamped on every report. Defaults to "test-run".
	RunID string `yaml:"run_id,omitempty"`

	// Source is seeded into the source instance before the first step.
	Source *fixture.File `yaml:"source"`

	// Target is seeded into the target instance before the first step.
	// Optional; the target starts empty without it.
	Target *fixture.File `yaml:"target,omitempty"`

	// Flow contains the sync steps, executed in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the reports and the final target state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one Walk or Sync call.
type Step struct {
	// Walk is the root ref of a walk. Exactly one of Walk and Sync is set.
	Walk string `yaml:"walk,omitempty"`

	// Sync is the ref of a single-entity sync.
	Sync string `yaml:"sync,omitempty"`

	// Policy is "strict" (default) or "lenient".
	Policy string `yaml:"policy,omitempty"`

	SkipRoot         bool  `yaml:"skip_root,omitempty"`
	SyncDependencies *bool `yaml:"sync_dependencies,omitempty"`
	FollowReferences bool  `yaml:"follow_references,omitempty"`
	StripPhantoms    bool  `yaml:"strip_phantoms,omitempty"`

	// Source and Target are applied to the instances before the step runs.
	// Entities that exist are updated, the rest created.
	Source *fixture.File `yaml:"source,omitempty"`
	Target *fixture.File `yaml:"target,omitempty"`

	// Expect specifies the expected outcome of the call.
	// If nil, the call must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected call behaviour.
type ExpectClause struct {
	// Error is the expected sync error code (e.g. "MISSING_DEPENDENCY").
	// Empty means the call must succeed.
	Error string `yaml:"error,omitempty"`

	// Counts are expected entry counts per outcome. Outcomes not listed are
	// not checked.
	Counts map[string]int `yaml:"counts,omitempty"`

	// Writes is the expected number of target writes.
	Writes *int64 `yaml:"writes,omitempty"`
}

// Assertion validates a report or the final target state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "report_contains": an entry for ref with outcome (and detail/note substrings)
	// - "report_order": refs first appear in this order
	// - "report_count": outcome appears exactly count times
	// - "target_state": the target entity (or one of its nodes) has these values
	// - "target_absent": the target has no entity at ref
	Type string `yaml:"type"`

	// Step selects the report by flow index. Defaults to the last step.
	Step *int `yaml:"step,omitempty"`

	// Ref is the entity ref (report_contains, target_state, target_absent).
	Ref string `yaml:"ref,omitempty"`

	// Outcome is the expected outcome (report_contains, report_count).
	Outcome string `yaml:"outcome,omitempty"`

	// Detail and Note are substrings of the entry detail and of one of its
	// notes (report_contains).
	Detail string `yaml:"detail,omitempty"`
	Note   string `yaml:"note,omitempty"`

	// Count is the expected number of entries (report_count).
	Count int `yaml:"count,omitempty"`

	// Refs is the expected first-appearance order (report_order).
	Refs []string `yaml:"refs,omitempty"`

	// Node is a payload node path such as "section[1]/banner" (target_state).
	Node string `yaml:"node,omitempty"`

	// Expect holds expected field values (target_state). Entity fields are
	// text, variant, url, title and schema; node fields are text, link and
	// kind. Links compare by ref string, "" meaning unbound.
	Expect map[string]string `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertReportContains = "report_contains"
	AssertReportOrder    = "report_order"
	AssertReportCount    = "report_count"
	AssertTargetState    = "target_state"
	AssertTargetAbsent   = "target_absent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Source == nil {
		return fmt.Errorf("source fixture is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, len(s.Flow)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	if (s.Walk == "") == (s.Sync == "") {
		return fmt.Errorf("flow[%d]: exactly one of walk and sync is required", index)
	}
	if _, err := s.ref(); err != nil {
		return fmt.Errorf("flow[%d]: %w", index, err)
	}
	if _, err := engine.ParsePolicy(s.Policy); err != nil {
		return fmt.Errorf("flow[%d]: %w", index, err)
	}
	if s.Expect != nil {
		for outcome := range s.Expect.Counts {
			if !knownOutcome(outcome) {
				return fmt.Errorf("flow[%d].expect: unknown outcome %q", index, outcome)
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Step != nil && (*a.Step < 0 || *a.Step >= steps) {
		return fmt.Errorf("assertions[%d]: step %d out of range", index, *a.Step)
	}
	if a.Ref != "" {
		if _, err := asset.ParseRef(a.Ref); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}

	switch a.Type {
	case AssertReportContains:
		if a.Ref == "" || a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: ref and outcome are required for report_contains", index)
		}
	case AssertReportOrder:
		if len(a.Refs) < 2 {
			return fmt.Errorf("assertions[%d]: at least two refs are required for report_order", index)
		}
		for _, r := range a.Refs {
			if _, err := asset.ParseRef(r); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertReportCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for report_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for report_count", index)
		}
	case AssertTargetState:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for target_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for target_state", index)
		}
	case AssertTargetAbsent:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for target_absent", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Outcome != "" && !knownOutcome(a.Outcome) {
		return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
	}
	return nil
}

func knownOutcome(s string) bool {
	for _, o := range engine.Outcomes {
		if string(o) == s {
			return true
		}
	}
	return false
}

// ref parses the walk root or sync ref.
func (s *Step) ref() (asset.Ref, error) {
	if s.Walk != "" {
		return asset.ParseRef(s.Walk)
	}
	return asset.ParseRef(s.Sync)
}

// options builds the walk options of the step.
func (s *Step) options() engine.WalkOptions {
	policy, _ := engine.ParsePolicy(s.Policy)
	opts := engine.DefaultWalkOptions()
	opts.Policy = policy
	opts.SkipRoot = s.SkipRoot
	opts.FollowReferences = s.FollowReferences
	opts.StripPhantoms = s.StripPhantoms
	if s.SyncDependencies != nil {
		opts.SyncDependencies = *s.SyncDependencies
	}
	return opts
}
