// Package types defines the core data structures for the tapestry knowledge
// graph engine: typed nodes and edges, the tagged property value union,
// immutable snapshots, and the shared error taxonomy.
//
// Everything in this package is plain data. The graph store, indexes, and
// engines all operate on these types; none of them reach back into the
// packages that produce them.
package types
