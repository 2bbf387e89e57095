package harness

import (
	"github.com/roach88/eventsheet/internal/engine"
)

// Trace event types.
const (
	TraceInitial = "initial" // variable state when the run started
	TraceChange  = "change"  // variable write observed at the end of a tick
	TraceWarning = "warning" // event that failed without stopping the tick
	TraceAbort   = "abort"   // tick abandoned by a fatal error
)

// TraceEvent is one entry of a recorded run, read back from the store.
// Value holds the serialized variable JSON of a change.
type TraceEvent struct {
	Type     string `json:"type"`
	Tick     uint64 `json:"tick"`
	Seq      int    `json:"seq"`
	Scope    string `json:"scope,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Instance int    `json:"instance,omitempty"`
	Name     string `json:"name,omitempty"`
	Value    string `json:"value,omitempty"`
	Deleted  bool   `json:"deleted,omitempty"`
	Code     string `json:"code,omitempty"`
	Event    string `json:"event,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true if every flow expectation and assertion held.
	Pass bool `json:"pass"`

	RunID       string `json:"run_id"`
	ProgramHash string `json:"program_hash"`

	// Trace is the recorded run in tick order. Within a tick, warnings come
	// first, then the abort if any, then changes.
	Trace []TraceEvent `json:"trace"`

	// Errors contains one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`

	// State is the variable state after the last recorded tick.
	State engine.Snapshot `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Changes returns the change events for name after the initial state, in
// trace order.
func (r *Result) Changes(name string) []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == TraceChange && e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
