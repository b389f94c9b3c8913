// Package analytics computes whole-graph measurements over pinned
// snapshots: centrality scores, community partitions, node similarity
// matrices, and summary statistics. Expensive exact algorithms refuse to
// run past a configurable size ceiling and offer sampled variants instead.
package analytics
