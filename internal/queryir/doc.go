// Package queryir describes filters over recorded run traces.
//
// A trace query selects columns from one recorded table and filters its
// rows with a predicate tree:
//
//	[trace flags] → [Query IR] → [SQL Backend]
//
// The IR is backend-neutral. Package querysql compiles it to parameterized
// SQLite; the store executes the result.
//
// # Sealed interfaces
//
// Query, Predicate and Value use the marker method pattern, so only types
// in this package implement them and backends can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Compare:
//	case And:
//	case Or:
//	}
//
// # Sources
//
// Every Source has a fixed column set (see Columns). Validate rejects
// unknown sources and columns, so column names reaching a backend are
// always known identifiers and never user text.
package queryir
