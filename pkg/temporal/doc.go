// Package temporal reconstructs historical graph states from the store's
// append-only mutation journal: time-sliced snapshots, change reports
// between two dates, and per-node evolution timelines with trend
// classification.
package temporal
