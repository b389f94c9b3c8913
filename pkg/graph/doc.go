// Package graph implements the entity and relationship store at the heart of
// the tapestry engine.
//
// The store owns the only shared mutable state in the system: the node and
// edge maps, their adjacency index, and the append-only mutation journal.
// Mutations take an exclusive lock and are synchronously mirrored to
// registered observers (secondary indexes), so a read immediately after a
// write always reflects the write. Reads hand out deep copies or pinned
// immutable snapshots; long-running consumers never observe a torn state.
package graph
