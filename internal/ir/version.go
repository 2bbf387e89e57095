package ir

// Version constants stamped into run records.
const (
	// FormatVersion is the declarative event format version.
	FormatVersion = "1"

	// EngineVersion is the eventsheet engine version.
	EngineVersion = "0.1.0"
)
