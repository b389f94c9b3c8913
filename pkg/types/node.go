package types

import "time"

// NodeType is the closed set of entity kinds the graph stores. Adding a kind
// is a compile-time change here plus the sub-schema it carries.
type NodeType string

const (
	// ContentNodeType represents a content item (article, recording, document).
	ContentNodeType NodeType = "content"
	// PersonNodeType represents a person.
	PersonNodeType NodeType = "person"
	// ConceptNodeType represents an abstract concept or theme.
	ConceptNodeType NodeType = "concept"
	// LocationNodeType represents a geographic location or region.
	LocationNodeType NodeType = "location"
	// TimePeriodNodeType represents a named time period or era.
	TimePeriodNodeType NodeType = "time_period"
	// ImpactNodeType represents a recorded impact or outcome.
	ImpactNodeType NodeType = "impact"
	// CollectionNodeType represents a meta grouping of other entities.
	CollectionNodeType NodeType = "collection"
)

// NodeTypes lists every valid node type in declaration order.
func NodeTypes() []NodeType {
	return []NodeType{
		ContentNodeType, PersonNodeType, ConceptNodeType, LocationNodeType,
		TimePeriodNodeType, ImpactNodeType, CollectionNodeType,
	}
}

// Valid reports whether t is a member of the closed node-type set.
func (t NodeType) Valid() bool {
	switch t {
	case ContentNodeType, PersonNodeType, ConceptNodeType, LocationNodeType,
		TimePeriodNodeType, ImpactNodeType, CollectionNodeType:
		return true
	}
	return false
}

// Embedding is a fixed-length vector attached to a node for semantic
// similarity search. The model identifier distinguishes vectors produced by
// incompatible models; vectors never participate in identity.
type Embedding struct {
	Model  string    `json:"model"`
	Vector []float32 `json:"vector"`
}

// Clone returns a deep copy of the embedding.
func (e *Embedding) Clone() *Embedding {
	if e == nil {
		return nil
	}
	return &Embedding{Model: e.Model, Vector: append([]float32(nil), e.Vector...)}
}

// Node is a typed entity in the knowledge graph.
//
// ID is opaque, stable, and immutable after creation; Type is immutable once
// set. Importance is a cached value recomputed by the analytics engine, never
// authoritative. Version increments on every applied patch and backs
// optimistic-concurrency checks.
type Node struct {
	ID         string                   `json:"id" mapstructure:"id"`
	Type       NodeType                 `json:"type" mapstructure:"type"`
	Label      string                   `json:"label" mapstructure:"label"`
	Properties map[string]PropertyValue `json:"properties,omitempty" mapstructure:"properties"`
	Embedding  *Embedding               `json:"embedding,omitempty" mapstructure:"embedding"`
	Importance float64                  `json:"importance" mapstructure:"importance"`

	CreatedAt     time.Time  `json:"created_at" mapstructure:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" mapstructure:"updated_at"`
	FirstActivity *time.Time `json:"first_activity,omitempty" mapstructure:"first_activity"`
	LastActivity  *time.Time `json:"last_activity,omitempty" mapstructure:"last_activity"`
	PeakActivity  *time.Time `json:"peak_activity,omitempty" mapstructure:"peak_activity"`

	Version uint64 `json:"version" mapstructure:"version"`
}

// Validate checks the fields required on every node.
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrEmptyID
	}
	if n.Label == "" {
		return ErrEmptyLabel
	}
	if !n.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// Clone returns a deep copy of the node. Snapshots and query results hand out
// clones so callers can never reach the store's mutable state.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Properties = CloneProperties(n.Properties)
	out.Embedding = n.Embedding.Clone()
	out.FirstActivity = cloneTime(n.FirstActivity)
	out.LastActivity = cloneTime(n.LastActivity)
	out.PeakActivity = cloneTime(n.PeakActivity)
	return &out
}

// NodePatch is a partial update applied to an existing node. Nil fields are
// left untouched; Unset removes property keys after Set is applied. When
// ExpectedVersion is non-nil the patch fails with ErrConflict unless it
// matches the node's current version.
type NodePatch struct {
	Label         *string                  `json:"label,omitempty"`
	Set           map[string]PropertyValue `json:"set,omitempty"`
	Unset         []string                 `json:"unset,omitempty"`
	Embedding     *Embedding               `json:"embedding,omitempty"`
	Importance    *float64                 `json:"importance,omitempty"`
	FirstActivity *time.Time               `json:"first_activity,omitempty"`
	LastActivity  *time.Time               `json:"last_activity,omitempty"`
	PeakActivity  *time.Time               `json:"peak_activity,omitempty"`

	ExpectedVersion *uint64 `json:"expected_version,omitempty"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
