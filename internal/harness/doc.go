// Package harness runs sync scenarios described in YAML.
//
// A scenario seeds a source and a target instance from fixtures, runs a
// flow of walks and single-entity syncs between them, and validates the
// reports and the final target state.
//
// # Scenario Format
//
//	name: lenient_clears_unresolved_reference
//	description: "A reference to an entity the target lacks is cleared"
//	run_id: golden-run
//	source:
//	  site: www
//	  entities:
//	    - ref: container:///docs
//	    - ref: page:///docs/intro
//	      payload:
//	        - {id: banner, ref: block:///blocks/banner}
//	target:
//	  entities: []
//	flow:
//	  - walk: container://www/docs
//	    policy: lenient
//	    expect:
//	      counts: {Created: 2}
//	      writes: 2
//	  - sync: page://www/docs/intro
//	    source:                        # applied before the step runs
//	      entities: [...]
//	assertions:
//	  - type: report_contains
//	    step: 0
//	    ref: block://www/blocks/banner
//	    outcome: Skipped
//	    detail: "left unbound"
//	  - type: target_state
//	    ref: page://www/docs/intro
//	    node: banner
//	    expect: {link: ""}
//
// # Assertion Types
//
//   - report_contains: an entry for ref with outcome, detail and note substrings
//   - report_order: refs first appear in the given order
//   - report_count: an outcome appears exactly N times
//   - target_state: fields of a target entity or payload node
//   - target_absent: the target has no entity at ref
//
// Report assertions default to the report of the last flow step.
//
// # Deterministic Testing
//
// Both stores are in-memory SQLite databases with sequential ids ("src-0001",
// "tgt-0001", ...) and every report carries the scenario's run id, so the
// reports of a scenario are identical across runs and can be compared with
// golden snapshots (see RunWithGolden).
package harness
