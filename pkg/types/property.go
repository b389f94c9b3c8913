package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PropertyKind discriminates the tagged value union stored in node and edge
// property maps. The set is closed so property access can be exhaustively
// matched instead of dynamically probed.
type PropertyKind string

const (
	KindInt    PropertyKind = "int"
	KindFloat  PropertyKind = "float"
	KindText   PropertyKind = "text"
	KindTags   PropertyKind = "tags"
	KindTime   PropertyKind = "time"
	KindRecord PropertyKind = "record"
)

// PropertyValue is a tagged union over the value types a node or edge
// property may hold. Exactly one payload field is meaningful, selected by
// Kind. The zero value is not valid; use the constructors.
type PropertyValue struct {
	Kind   PropertyKind             `json:"kind"`
	Int    int64                    `json:"int,omitempty"`
	Float  float64                  `json:"float,omitempty"`
	Text   string                   `json:"text,omitempty"`
	Tags   []string                 `json:"tags,omitempty"`
	Time   time.Time                `json:"time,omitempty"`
	Record map[string]PropertyValue `json:"record,omitempty"`
}

// IntValue returns an integer property value.
func IntValue(v int64) PropertyValue { return PropertyValue{Kind: KindInt, Int: v} }

// FloatValue returns a float property value.
func FloatValue(v float64) PropertyValue { return PropertyValue{Kind: KindFloat, Float: v} }

// TextValue returns a text property value.
func TextValue(v string) PropertyValue { return PropertyValue{Kind: KindText, Text: v} }

// TagsValue returns a tag-set property value. Tags are stored sorted and
// deduplicated so comparison is order-independent.
func TagsValue(tags ...string) PropertyValue {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return PropertyValue{Kind: KindTags, Tags: out}
}

// TimeValue returns a timestamp property value.
func TimeValue(v time.Time) PropertyValue { return PropertyValue{Kind: KindTime, Time: v} }

// RecordValue returns a nested-record property value.
func RecordValue(fields map[string]PropertyValue) PropertyValue {
	return PropertyValue{Kind: KindRecord, Record: fields}
}

// IsZero reports whether the value is the zero PropertyValue (no kind set).
func (v PropertyValue) IsZero() bool { return v.Kind == "" }

// Equal reports whether two property values have the same kind and payload.
func (v PropertyValue) Equal(other PropertyValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindText:
		return v.Text == other.Text
	case KindTime:
		return v.Time.Equal(other.Time)
	case KindTags:
		if len(v.Tags) != len(other.Tags) {
			return false
		}
		for i := range v.Tags {
			if v.Tags[i] != other.Tags[i] {
				return false
			}
		}
		return true
	case KindRecord:
		if len(v.Record) != len(other.Record) {
			return false
		}
		for k, val := range v.Record {
			ov, ok := other.Record[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two values of the same kind. It returns -1, 0, or 1, and
// false when the kinds differ or the kind has no natural order.
func (v PropertyValue) Compare(other PropertyValue) (int, bool) {
	if v.Kind != other.Kind {
		return 0, false
	}
	switch v.Kind {
	case KindInt:
		switch {
		case v.Int < other.Int:
			return -1, true
		case v.Int > other.Int:
			return 1, true
		}
		return 0, true
	case KindFloat:
		switch {
		case v.Float < other.Float:
			return -1, true
		case v.Float > other.Float:
			return 1, true
		}
		return 0, true
	case KindText:
		return strings.Compare(v.Text, other.Text), true
	case KindTime:
		switch {
		case v.Time.Before(other.Time):
			return -1, true
		case v.Time.After(other.Time):
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Contains reports substring membership for text values and tag membership
// for tag sets. Other kinds never match.
func (v PropertyValue) Contains(needle string) bool {
	switch v.Kind {
	case KindText:
		return strings.Contains(v.Text, needle)
	case KindTags:
		for _, t := range v.Tags {
			if t == needle {
				return true
			}
		}
	}
	return false
}

// String renders the payload for logs and sort keys.
func (v PropertyValue) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindText:
		return v.Text
	case KindTags:
		return strings.Join(v.Tags, ",")
	case KindTime:
		return v.Time.UTC().Format(time.RFC3339)
	case KindRecord:
		b, err := json.Marshal(v.Record)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// Clone returns a deep copy of the value.
func (v PropertyValue) Clone() PropertyValue {
	out := v
	if v.Tags != nil {
		out.Tags = append([]string(nil), v.Tags...)
	}
	if v.Record != nil {
		out.Record = make(map[string]PropertyValue, len(v.Record))
		for k, val := range v.Record {
			out.Record[k] = val.Clone()
		}
	}
	return out
}

// CloneProperties deep-copies a property map. A nil map stays nil.
func CloneProperties(props map[string]PropertyValue) map[string]PropertyValue {
	if props == nil {
		return nil
	}
	out := make(map[string]PropertyValue, len(props))
	for k, v := range props {
		out[k] = v.Clone()
	}
	return out
}
