// Package utils provides small shared helpers for the tapestry engine:
// bounded-concurrency execution, panic recovery for worker goroutines,
// vector math for embedding similarity, and top-k selection.
package utils
