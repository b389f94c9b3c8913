// Package query implements the read side of the tapestry engine: filtered
// scans over nodes and edges, subgraph pattern matching, path finding, and
// bounded traversals.
//
// Every operation pins an immutable store snapshot before doing any work, so
// results are consistent even while writers are active, and every operation
// returns a deterministic ordering for identical inputs.
package query
