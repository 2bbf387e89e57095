// Package ir provides the value and document types shared by every other
// package in eventsheet.
//
// This package contains type definitions, coercions and serialization only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Variable is a sealed union (Number, String, Structure, Array)
//   - Variable values are immutable; stores rebuild paths on write
//   - The declarative format mirrors the game-project JSON (camelCase tags)
//   - Identity hashes use RFC 8785 canonical JSON, never encoding/json output
package ir
