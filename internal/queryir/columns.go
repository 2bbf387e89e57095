package queryir

import "slices"

var columns = map[Source][]string{
	SourceRuns: {
		"id", "scene", "program_hash", "format_version", "engine_version",
		"start_tick", "last_tick", "resumed_from", "status", "started_at",
	},
	SourceTicks:    {"run_id", "tick", "steps", "aborted"},
	SourceChanges:  {"run_id", "tick", "seq", "scope", "owner", "instance", "name", "value_json", "deleted"},
	SourceWarnings: {"run_id", "tick", "seq", "event", "code", "message"},
}

// ordered lists the columns Compare may use.
var ordered = map[string]bool{
	"tick":       true,
	"seq":        true,
	"steps":      true,
	"instance":   true,
	"start_tick": true,
	"last_tick":  true,
	"started_at": true,
}

// Columns returns the columns of source in table order, or nil for an
// unknown source.
func Columns(source Source) []string {
	return slices.Clone(columns[source])
}

// HasColumn reports whether source has the named column.
func HasColumn(source Source, name string) bool {
	return slices.Contains(columns[source], name)
}
