package types

import "time"

// Direction selects which incident edges a traversal follows from a node.
// Bidirectional edges are reachable from either endpoint regardless of the
// chosen direction.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// EdgeType is the closed set of relationship kinds, grouped by domain.
type EdgeType string

const (
	// Content relations.
	ReferencesEdgeType  EdgeType = "references"
	DerivedFromEdgeType EdgeType = "derived_from"
	PartOfEdgeType      EdgeType = "part_of"

	// People relations.
	MentorsEdgeType          EdgeType = "mentors"
	CollaboratesWithEdgeType EdgeType = "collaborates_with"
	InfluencesEdgeType       EdgeType = "influences"

	// Concept relations.
	RelatedToEdgeType   EdgeType = "related_to"
	SpecializesEdgeType EdgeType = "specializes"

	// Location relations.
	LocatedInEdgeType EdgeType = "located_in"
	NearEdgeType      EdgeType = "near"

	// Temporal relations.
	PrecedesEdgeType       EdgeType = "precedes"
	ConcurrentWithEdgeType EdgeType = "concurrent_with"
	DuringEdgeType         EdgeType = "during"

	// Impact relations.
	ImpactsEdgeType    EdgeType = "impacts"
	MeasuredByEdgeType EdgeType = "measured_by"

	// Participation.
	ParticipatesInEdgeType EdgeType = "participates_in"
	ContributedToEdgeType  EdgeType = "contributed_to"

	// Knowledge flow.
	TeachesEdgeType     EdgeType = "teaches"
	LearnedFromEdgeType EdgeType = "learned_from"
)

// EdgeTypes lists every valid edge type in declaration order.
func EdgeTypes() []EdgeType {
	return []EdgeType{
		ReferencesEdgeType, DerivedFromEdgeType, PartOfEdgeType,
		MentorsEdgeType, CollaboratesWithEdgeType, InfluencesEdgeType,
		RelatedToEdgeType, SpecializesEdgeType,
		LocatedInEdgeType, NearEdgeType,
		PrecedesEdgeType, ConcurrentWithEdgeType, DuringEdgeType,
		ImpactsEdgeType, MeasuredByEdgeType,
		ParticipatesInEdgeType, ContributedToEdgeType,
		TeachesEdgeType, LearnedFromEdgeType,
	}
}

// Valid reports whether t is a member of the closed edge-type set.
func (t EdgeType) Valid() bool {
	for _, known := range EdgeTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Edge is a typed, directed, weighted relationship between two nodes.
//
// Source and Target must reference nodes present in the store when the edge
// is created; the store rejects dangling edges. Weight feeds path and
// centrality algorithms and must be non-negative. Bidirectional edges are
// stored once and treated as traversable from either endpoint.
type Edge struct {
	ID     string   `json:"id" mapstructure:"id"`
	Type   EdgeType `json:"type" mapstructure:"type"`
	Source string   `json:"source" mapstructure:"source"`
	Target string   `json:"target" mapstructure:"target"`
	Weight float64  `json:"weight" mapstructure:"weight"`

	Strength   float64  `json:"strength" mapstructure:"strength"`
	Confidence float64  `json:"confidence" mapstructure:"confidence"`
	Evidence   []string `json:"evidence,omitempty" mapstructure:"evidence"`

	StartDate      *time.Time `json:"start_date,omitempty" mapstructure:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty" mapstructure:"end_date"`
	Occurrences    int        `json:"occurrences" mapstructure:"occurrences"`
	LastOccurrence *time.Time `json:"last_occurrence,omitempty" mapstructure:"last_occurrence"`

	Bidirectional bool `json:"bidirectional" mapstructure:"bidirectional"`
	Primary       bool `json:"primary" mapstructure:"primary"`

	Properties map[string]PropertyValue `json:"properties,omitempty" mapstructure:"properties"`

	CreatedAt time.Time `json:"created_at" mapstructure:"created_at"`
	UpdatedAt time.Time `json:"updated_at" mapstructure:"updated_at"`

	Version uint64 `json:"version" mapstructure:"version"`
}

// Validate checks the fields required on every edge.
func (e *Edge) Validate() error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if !e.Type.Valid() {
		return ErrInvalidType
	}
	if e.Source == "" || e.Target == "" {
		return ErrUnknownNode
	}
	if e.Weight < 0 {
		return ErrInvalidWeight
	}
	if e.Strength < 0 || e.Strength > 1 {
		return ErrInvalidScore
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return ErrInvalidScore
	}
	return nil
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	out := *e
	if e.Evidence != nil {
		out.Evidence = append([]string(nil), e.Evidence...)
	}
	out.Properties = CloneProperties(e.Properties)
	out.StartDate = cloneTime(e.StartDate)
	out.EndDate = cloneTime(e.EndDate)
	out.LastOccurrence = cloneTime(e.LastOccurrence)
	return &out
}

// Touches reports whether the edge is incident to the given node id.
func (e *Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Other returns the opposite endpoint of the edge relative to nodeID. It
// returns the empty string when the edge does not touch nodeID.
func (e *Edge) Other(nodeID string) string {
	switch nodeID {
	case e.Source:
		return e.Target
	case e.Target:
		return e.Source
	}
	return ""
}

// EdgePatch is a partial update applied to an existing edge. Nil fields are
// left untouched. AddEvidence appends supporting references; Occur bumps the
// occurrence count and last-occurrence timestamp.
type EdgePatch struct {
	Weight        *float64                 `json:"weight,omitempty"`
	Strength      *float64                 `json:"strength,omitempty"`
	Confidence    *float64                 `json:"confidence,omitempty"`
	AddEvidence   []string                 `json:"add_evidence,omitempty"`
	StartDate     *time.Time               `json:"start_date,omitempty"`
	EndDate       *time.Time               `json:"end_date,omitempty"`
	Occur         *time.Time               `json:"occur,omitempty"`
	Bidirectional *bool                    `json:"bidirectional,omitempty"`
	Primary       *bool                    `json:"primary,omitempty"`
	Set           map[string]PropertyValue `json:"set,omitempty"`
	Unset         []string                 `json:"unset,omitempty"`

	ExpectedVersion *uint64 `json:"expected_version,omitempty"`
}
