package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AttributeKind partitions queryable attributes by storage shape.
type AttributeKind int

const (
	// ScalarAttribute holds at most one categorical value per member.
	ScalarAttribute AttributeKind = iota
	// ListAttribute holds an ordered list of values per member.
	ListAttribute
)

func (k AttributeKind) String() string {
	switch k {
	case ScalarAttribute:
		return "scalar"
	case ListAttribute:
		return "list"
	}
	return fmt.Sprintf("AttributeKind(%d)", int(k))
}

// ValueType is the declared type of an attribute's values (element type for lists).
type ValueType int

const (
	StringValue ValueType = iota
	IntegerValue
)

func (t ValueType) String() string {
	switch t {
	case StringValue:
		return "string"
	case IntegerValue:
		return "integer"
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// Attribute is one queryable column of the cleaned members table.
// The set is closed: adding a variant means adding a row to attributeDefs.
type Attribute int

const (
	AttrGender Attribute = iota
	AttrCountryCode
	AttrCountryName
	AttrTimezone
	AttrGMTOffset
	AttrGoal
	AttrSource
	AttrSoloProjectTier
	AttrRole
	AttrVoyageSignupIDs
	AttrVoyageTiers

	attributeCount
)

type attributeDef struct {
	name      string
	column    string
	kind      AttributeKind
	valueType ValueType
}

var attributeDefs = [attributeCount]attributeDef{
	AttrGender:          {"Gender", "gender", ScalarAttribute, StringValue},
	AttrCountryCode:     {"Country_Code", "country_code", ScalarAttribute, StringValue},
	AttrCountryName:     {"Country_Name", "country_name", ScalarAttribute, StringValue},
	AttrTimezone:        {"Timezone", "timezone", ScalarAttribute, StringValue},
	AttrGMTOffset:       {"GMT_Offset", "gmt_offset", ScalarAttribute, IntegerValue},
	AttrGoal:            {"Goal", "goal", ScalarAttribute, StringValue},
	AttrSource:          {"Source", "source", ScalarAttribute, StringValue},
	AttrSoloProjectTier: {"Solo_Project_Tier", "solo_project_tier", ScalarAttribute, IntegerValue},
	AttrRole:            {"Role", "role", ScalarAttribute, StringValue},
	AttrVoyageSignupIDs: {"Voyage_Signup_ids", "voyage_signup_ids", ListAttribute, IntegerValue},
	AttrVoyageTiers:     {"Voyage_Tiers", "voyage_tiers", ListAttribute, StringValue},
}

var attributesByName = func() map[string]Attribute {
	m := make(map[string]Attribute, 2*int(attributeCount))
	for i := range attributeCount {
		def := attributeDefs[i]
		m[strings.ToLower(def.name)] = i
		m[strings.ToLower(def.column)] = i
	}
	return m
}()

// Attributes returns every registered attribute in registry order.
func Attributes() []Attribute {
	out := make([]Attribute, 0, attributeCount)
	for i := range attributeCount {
		out = append(out, i)
	}
	return out
}

// AttributeNames returns the public names of all registered attributes.
func AttributeNames() []string {
	out := make([]string, 0, attributeCount)
	for i := range attributeCount {
		out = append(out, attributeDefs[i].name)
	}
	return out
}

// LookupAttribute resolves a public attribute name or a column name, ignoring case.
func LookupAttribute(name string) (Attribute, bool) {
	a, ok := attributesByName[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Valid reports whether a is a registered attribute.
func (a Attribute) Valid() bool {
	return a >= 0 && a < attributeCount
}

// Name is the public attribute name used by the API.
func (a Attribute) Name() string {
	if !a.Valid() {
		return ""
	}
	return attributeDefs[a].name
}

// Column is the physical column name in the cleaned table.
func (a Attribute) Column() string {
	if !a.Valid() {
		return ""
	}
	return attributeDefs[a].column
}

func (a Attribute) Kind() AttributeKind {
	return attributeDefs[a].kind
}

func (a Attribute) ValueType() ValueType {
	return attributeDefs[a].valueType
}

func (a Attribute) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
	return attributeDefs[a].name
}

// MarshalText lets attributes key JSON objects by their public name.
func (a Attribute) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("unknown attribute %d", int(a))
	}
	return []byte(a.Name()), nil
}

// UnmarshalText resolves a public or column name.
func (a *Attribute) UnmarshalText(text []byte) error {
	attr, ok := LookupAttribute(string(text))
	if !ok {
		return fmt.Errorf("unknown attribute %q", string(text))
	}
	*a = attr
	return nil
}

// CanonicalValue converts a value read back from the warehouse into the
// attribute's canonical Go representation: int64 for integer attributes,
// string for string attributes. Drivers disagree on numeric widths and some
// return JSON-array elements as text, so both directions are accepted here.
// The second result is false for nulls and values of the wrong shape.
func (a Attribute) CanonicalValue(v any) (any, bool) {
	switch a.ValueType() {
	case IntegerValue:
		return canonicalInteger(v)
	case StringValue:
		return canonicalString(v)
	}
	return nil, false
}

// RequestValue validates a client-supplied filter value against the declared
// type without coercion: integer attributes accept JSON integers only and
// string attributes accept JSON strings only.
func (a Attribute) RequestValue(v any) (any, bool) {
	switch a.ValueType() {
	case IntegerValue:
		switch n := v.(type) {
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, false
			}
			return i, true
		case float64:
			if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt64 || n < math.MinInt64 {
				return nil, false
			}
			return int64(n), true
		case int:
			return int64(n), true
		case int64:
			return n, true
		case int32:
			return int64(n), true
		}
		return nil, false
	case StringValue:
		s, ok := v.(string)
		return s, ok
	}
	return nil, false
}

func canonicalInteger(v any) (any, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return nil, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, false
		}
		return i, true
	case []byte:
		i, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
		if err != nil {
			return nil, false
		}
		return i, true
	}
	return nil, false
}

func canonicalString(v any) (any, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return nil, false
}
