package testutil

// FixedRunID returns the same run id every time.
//
// The id is typically set in the scenario YAML:
//
//	run_id: "run-golden"
//
// If id is empty, Generate() returns "test-run".
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a fixed run id generator.
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run"
	}
	return &FixedRunID{id: id}
}

// Generate implements engine.RunIDGenerator.
func (g *FixedRunID) Generate() string {
	return g.id
}
