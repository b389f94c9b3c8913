package graph

import (
	"time"

	"github.com/tapestry-kg/tapestry/pkg/types"
)

// EventKind identifies the mutation a journal event records.
type EventKind string

const (
	EventNodeAdded   EventKind = "node_added"
	EventNodeUpdated EventKind = "node_updated"
	EventNodeRemoved EventKind = "node_removed"
	EventEdgeAdded   EventKind = "edge_added"
	EventEdgeUpdated EventKind = "edge_updated"
	EventEdgeRemoved EventKind = "edge_removed"
)

// Event is one entry in the store's append-only mutation journal. For adds
// and updates the payload is the entity state after the mutation; for
// removals it is the state at removal time. The journal is the source of
// truth for the temporal engine's historical snapshots.
type Event struct {
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`
	Kind EventKind `json:"kind"`

	Node *types.Node `json:"node,omitempty"`
	Edge *types.Edge `json:"edge,omitempty"`
}

// EntityID returns the id of the node or edge the event concerns.
func (ev *Event) EntityID() string {
	if ev.Node != nil {
		return ev.Node.ID
	}
	if ev.Edge != nil {
		return ev.Edge.ID
	}
	return ""
}

// Clone returns a deep copy of the event.
func (ev Event) Clone() Event {
	out := ev
	if ev.Node != nil {
		out.Node = ev.Node.Clone()
	}
	if ev.Edge != nil {
		out.Edge = ev.Edge.Clone()
	}
	return out
}

// JournalObserver receives every journal event right after it is appended,
// inside the store's exclusive section. Durable backends implement this to
// persist the journal without a write window where memory and disk disagree.
type JournalObserver interface {
	EventAppended(ev Event)
}
