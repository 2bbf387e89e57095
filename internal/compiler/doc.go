// Package compiler turns declarative event sheets into trees of closures.
//
// Each instruction compiles to one small function built by its registry
// entry. Events compile to units that evaluate their conditions with
// short-circuit AND, run their actions in order and then their
// sub-events. Units read and write variables only through the Frame they
// are given.
//
// Malformed input is rejected before anything runs: CompileScene stops at
// the first CompileError, while Validate reports every problem with the
// same E2xx codes.
package compiler
