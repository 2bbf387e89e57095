package testutil

// DefaultRunID is used when a FixedRunID is created with an empty id.
const DefaultRunID = "test-run-default"

// FixedRunID names every run with the same id.
//
// Unlike engine.FixedGenerator, which returns ids in sequence and panics
// when they run out, FixedRunID can name any number of runs. Running the
// same scenario twice with the same FixedRunID produces identical traces.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator for id, typically the scenario's
// run_id field.
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed id. Implements engine.RunIDGenerator.
func (g *FixedRunID) Generate() string {
	return g.id
}
