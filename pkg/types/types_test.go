package types

import (
	"testing"
	"time"
)

func TestNodeValidate(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		wantErr error
	}{
		{
			name:    "valid node",
			node:    Node{ID: "n1", Type: PersonNodeType, Label: "Ada"},
			wantErr: nil,
		},
		{
			name:    "empty id",
			node:    Node{Type: PersonNodeType, Label: "Ada"},
			wantErr: ErrEmptyID,
		},
		{
			name:    "empty label",
			node:    Node{ID: "n1", Type: PersonNodeType},
			wantErr: ErrEmptyLabel,
		},
		{
			name:    "unknown type",
			node:    Node{ID: "n1", Type: NodeType("robot"), Label: "Ada"},
			wantErr: ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.node.Validate(); err != tt.wantErr {
				t.Errorf("Node.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEdgeValidate(t *testing.T) {
	tests := []struct {
		name    string
		edge    Edge
		wantErr error
	}{
		{
			name:    "valid edge",
			edge:    Edge{ID: "e1", Type: MentorsEdgeType, Source: "a", Target: "b", Weight: 1},
			wantErr: nil,
		},
		{
			name:    "empty id",
			edge:    Edge{Type: MentorsEdgeType, Source: "a", Target: "b"},
			wantErr: ErrEmptyID,
		},
		{
			name:    "unknown type",
			edge:    Edge{ID: "e1", Type: EdgeType("likes"), Source: "a", Target: "b"},
			wantErr: ErrInvalidType,
		},
		{
			name:    "missing endpoint",
			edge:    Edge{ID: "e1", Type: MentorsEdgeType, Source: "a"},
			wantErr: ErrUnknownNode,
		},
		{
			name:    "negative weight",
			edge:    Edge{ID: "e1", Type: MentorsEdgeType, Source: "a", Target: "b", Weight: -1},
			wantErr: ErrInvalidWeight,
		},
		{
			name:    "strength above one",
			edge:    Edge{ID: "e1", Type: MentorsEdgeType, Source: "a", Target: "b", Strength: 4.2},
			wantErr: ErrInvalidScore,
		},
		{
			name:    "negative confidence",
			edge:    Edge{ID: "e1", Type: MentorsEdgeType, Source: "a", Target: "b", Confidence: -0.5},
			wantErr: ErrInvalidScore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.edge.Validate(); err != tt.wantErr {
				t.Errorf("Edge.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEdgeOther(t *testing.T) {
	e := Edge{ID: "e1", Type: NearEdgeType, Source: "a", Target: "b"}
	if got := e.Other("a"); got != "b" {
		t.Errorf("Other(a) = %q, want b", got)
	}
	if got := e.Other("b"); got != "a" {
		t.Errorf("Other(b) = %q, want a", got)
	}
	if got := e.Other("c"); got != "" {
		t.Errorf("Other(c) = %q, want empty", got)
	}
}

func TestPropertyValueEqual(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		a, b PropertyValue
		want bool
	}{
		{"same int", IntValue(3), IntValue(3), true},
		{"different int", IntValue(3), IntValue(4), false},
		{"kind mismatch", IntValue(3), FloatValue(3), false},
		{"same text", TextValue("x"), TextValue("x"), true},
		{"tags order independent", TagsValue("b", "a"), TagsValue("a", "b"), true},
		{"tags subset", TagsValue("a"), TagsValue("a", "b"), false},
		{"same time", TimeValue(now), TimeValue(now), true},
		{
			"nested record",
			RecordValue(map[string]PropertyValue{"k": IntValue(1)}),
			RecordValue(map[string]PropertyValue{"k": IntValue(1)}),
			true,
		},
		{
			"nested record mismatch",
			RecordValue(map[string]PropertyValue{"k": IntValue(1)}),
			RecordValue(map[string]PropertyValue{"k": IntValue(2)}),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPropertyValueCompare(t *testing.T) {
	if got, ok := IntValue(1).Compare(IntValue(2)); !ok || got != -1 {
		t.Errorf("Compare(1,2) = %d,%v", got, ok)
	}
	if got, ok := TextValue("b").Compare(TextValue("a")); !ok || got != 1 {
		t.Errorf("Compare(b,a) = %d,%v", got, ok)
	}
	if _, ok := TagsValue("a").Compare(TagsValue("b")); ok {
		t.Error("tag sets should not be ordered")
	}
	if _, ok := IntValue(1).Compare(TextValue("1")); ok {
		t.Error("mixed kinds should not compare")
	}
}

func TestPropertyValueContains(t *testing.T) {
	if !TextValue("knowledge graph").Contains("graph") {
		t.Error("text Contains should match substrings")
	}
	if !TagsValue("oral-history", "music").Contains("music") {
		t.Error("tags Contains should match members")
	}
	if TagsValue("oral-history").Contains("oral") {
		t.Error("tags Contains must not match partial tags")
	}
}

func TestNodeCloneIsDeep(t *testing.T) {
	orig := &Node{
		ID:    "n1",
		Type:  ConceptNodeType,
		Label: "resilience",
		Properties: map[string]PropertyValue{
			"tags": TagsValue("theme"),
		},
		Embedding: &Embedding{Model: "m1", Vector: []float32{0.1, 0.2}},
	}
	clone := orig.Clone()

	clone.Properties["tags"] = TagsValue("mutated")
	clone.Embedding.Vector[0] = 9

	if orig.Properties["tags"].Tags[0] != "theme" {
		t.Error("clone mutation leaked into original properties")
	}
	if orig.Embedding.Vector[0] != 0.1 {
		t.Error("clone mutation leaked into original embedding")
	}
}

func TestEdgeCloneIsDeep(t *testing.T) {
	start := time.Now()
	orig := &Edge{
		ID: "e1", Type: MentorsEdgeType, Source: "a", Target: "b",
		Evidence:  []string{"ref-1"},
		StartDate: &start,
	}
	clone := orig.Clone()
	clone.Evidence[0] = "mutated"
	*clone.StartDate = start.Add(time.Hour)

	if orig.Evidence[0] != "ref-1" {
		t.Error("clone mutation leaked into original evidence")
	}
	if !orig.StartDate.Equal(start) {
		t.Error("clone mutation leaked into original start date")
	}
}
