// Package storage persists the graph journal and materialized entity state
// in an embedded Badger database, and restores stores from it on startup.
package storage
