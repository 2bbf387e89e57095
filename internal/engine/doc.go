// Package engine runs compiled scenes tick by tick.
//
// A Scene owns the live variable containers of one scene (global, scene
// and one per object instance) and invokes the compiled program exactly
// once per Step.
//
// Single-writer model:
// Step and Run must be called from one goroutine. Post is the only entry
// point that is safe from other goroutines; posted inputs are queued and
// applied at the start of the next tick, before any event runs.
//
// Failure model:
// An error inside one event is caught at that event, logged with
// slog.Warn and recorded as a Warning; sibling events keep running. A
// StepsExceededError abandons the rest of the tick. Mutations applied
// before it stay applied.
//
// Ticks are numbered by a logical Clock, never by wall time, so a run
// recorded through a Recorder replays to the same state.
package engine
