package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// AttributeKind discriminates the scalar stored in an AttributeValue
type AttributeKind string

const (
	AttrString AttributeKind = "string"
	AttrNumber AttributeKind = "number"
	AttrBool   AttributeKind = "bool"
)

// AttributeValue is a tagged scalar: exactly one of the three kinds holds.
type AttributeValue struct {
	Kind AttributeKind
	Str  string
	Num  float64
	Bool bool
}

// StringValue creates a string-kind attribute value
func StringValue(s string) AttributeValue {
	return AttributeValue{Kind: AttrString, Str: s}
}

// NumberValue creates a number-kind attribute value
func NumberValue(f float64) AttributeValue {
	return AttributeValue{Kind: AttrNumber, Num: f}
}

// BoolValue creates a bool-kind attribute value
func BoolValue(b bool) AttributeValue {
	return AttributeValue{Kind: AttrBool, Bool: b}
}

// Canonical is the single serialization used at the oracle boundary.
func (v AttributeValue) Canonical() string {
	switch v.Kind {
	case AttrNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case AttrBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// MarshalJSON writes the bare scalar
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AttrNumber:
		return json.Marshal(v.Num)
	case AttrBool:
		return json.Marshal(v.Bool)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON tags the union from the JSON scalar type
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberValue(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringValue(s)
		return nil
	}
	return fmt.Errorf("attribute value must be a string, number or bool")
}

// Attribute is one named entry of an item's ordered attribute list
type Attribute struct {
	Name  string         `json:"name"`
	Value AttributeValue `json:"value"`
}

// Item represents one evaluable unit in the catalog.
// Owned by the catalog store; mutated only through claim/unclaim/reset.
type Item struct {
	ID          string      `json:"id"`
	Query       string      `json:"query"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	Claimed     bool        `json:"claimed"`
	ClaimedAt   *time.Time  `json:"claimed_at,omitempty"`
}

// IsAvailable reports whether the item can be claimed
func (i *Item) IsAvailable() bool {
	return !i.Claimed
}

// AttributeMap flattens the ordered attribute list into the wire form the
// scoring service accepts, using the canonical serialization per value.
func (i *Item) AttributeMap() map[string]string {
	if len(i.Attributes) == 0 {
		return nil
	}
	m := make(map[string]string, len(i.Attributes))
	for _, a := range i.Attributes {
		m[a.Name] = a.Value.Canonical()
	}
	return m
}

// Clone returns a deep copy of the item
func (i Item) Clone() Item {
	out := i
	if i.Attributes != nil {
		out.Attributes = make([]Attribute, len(i.Attributes))
		copy(out.Attributes, i.Attributes)
	}
	if i.ClaimedAt != nil {
		t := *i.ClaimedAt
		out.ClaimedAt = &t
	}
	return out
}
