package models

import (
	"encoding/json"
	"time"

	"github.com/chingu-voyages/member-demographics/pkg/jsonutil"
)

// RawMember is one survey submission as exported by the form tool.
// Every field is untyped text; nil means the cell was absent, null or empty.
type RawMember struct {
	Timestamp       *string
	Gender          *string
	CountryCode     *string
	CountryName     *string
	Timezone        *string
	Goal            *string
	GoalOther       *string
	Source          *string
	SourceOther     *string
	RoleType        *string
	VoyageRole      *string
	SoloProjectTier *string
	VoyageTier      *string
	VoyageSignups   *string
}

// Raw export column headers.
const (
	RawColTimestamp       = "Timestamp"
	RawColGender          = "Gender"
	RawColCountryCode     = "Country Code"
	RawColCountryName     = "Country name (from Country)"
	RawColTimezone        = "Timezone"
	RawColGoal            = "Goal"
	RawColGoalOther       = "Goal-Other"
	RawColSource          = "Source"
	RawColSourceOther     = "Source-Other"
	RawColRoleType        = "Role Type"
	RawColVoyageRole      = "Voyage Role"
	RawColSoloProjectTier = "Solo Project Tier"
	RawColVoyageTier      = "Voyage Tier"
	RawColVoyageSignups   = "Voyage (from Voyage Signups)"
)

// UnmarshalJSON reads a raw export object keyed by the export's column headers.
// Numeric and boolean cells are read as their text form; unknown keys are ignored.
func (r *RawMember) UnmarshalJSON(data []byte) error {
	var cells map[string]json.RawMessage
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}

	cell := func(key string) *string {
		raw, ok := cells[key]
		if !ok {
			return nil
		}
		s := jsonutil.FlexibleStringValue(raw)
		if s == "" {
			return nil
		}
		return &s
	}

	*r = RawMember{
		Timestamp:       cell(RawColTimestamp),
		Gender:          cell(RawColGender),
		CountryCode:     cell(RawColCountryCode),
		CountryName:     cell(RawColCountryName),
		Timezone:        cell(RawColTimezone),
		Goal:            cell(RawColGoal),
		GoalOther:       cell(RawColGoalOther),
		Source:          cell(RawColSource),
		SourceOther:     cell(RawColSourceOther),
		RoleType:        cell(RawColRoleType),
		VoyageRole:      cell(RawColVoyageRole),
		SoloProjectTier: cell(RawColSoloProjectTier),
		VoyageTier:      cell(RawColVoyageTier),
		VoyageSignups:   cell(RawColVoyageSignups),
	}
	return nil
}

// Member is one cleaned row of the members table.
type Member struct {
	ID              int64      `json:"id"`
	Timestamp       *time.Time `json:"timestamp"`
	Gender          *string    `json:"gender"`
	Goal            *string    `json:"goal"`
	GoalOther       *string    `json:"goal_other"`
	Source          *string    `json:"source"`
	SourceOther     *string    `json:"source_other"`
	Role            *string    `json:"role"`
	CountryCode     *string    `json:"country_code"`
	CountryName     *string    `json:"country_name"`
	Timezone        *string    `json:"timezone"`
	GMTOffset       *int       `json:"gmt_offset"`
	SoloProjectTier *int       `json:"solo_project_tier"`
	VoyageSignupIDs []int64    `json:"voyage_signup_ids"`
	VoyageTiers     []string   `json:"voyage_tiers"`
}

// ColumnType is the logical storage type of a cleaned-table column.
type ColumnType int

const (
	ColumnInteger ColumnType = iota
	ColumnText
	ColumnTimestamp
	ColumnIntegerList
	ColumnTextList
)

// IsList reports whether the column stores a list of values.
func (t ColumnType) IsList() bool {
	return t == ColumnIntegerList || t == ColumnTextList
}

// Column describes one column of the cleaned members table.
type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
}

// Column names of the cleaned members table.
const (
	ColID              = "id"
	ColTimestamp       = "timestamp"
	ColGender          = "gender"
	ColGoal            = "goal"
	ColGoalOther       = "goal_other"
	ColSource          = "source"
	ColSourceOther     = "source_other"
	ColRole            = "role"
	ColCountryCode     = "country_code"
	ColCountryName     = "country_name"
	ColTimezone        = "timezone"
	ColGMTOffset       = "gmt_offset"
	ColSoloProjectTier = "solo_project_tier"
	ColVoyageSignupIDs = "voyage_signup_ids"
	ColVoyageTiers     = "voyage_tiers"
)

// MemberColumns is the cleaned table layout in storage order.
var MemberColumns = []Column{
	{Name: ColID, Type: ColumnInteger, PrimaryKey: true},
	{Name: ColTimestamp, Type: ColumnTimestamp},
	{Name: ColGender, Type: ColumnText},
	{Name: ColGoal, Type: ColumnText},
	{Name: ColGoalOther, Type: ColumnText},
	{Name: ColSource, Type: ColumnText},
	{Name: ColSourceOther, Type: ColumnText},
	{Name: ColRole, Type: ColumnText},
	{Name: ColCountryCode, Type: ColumnText},
	{Name: ColCountryName, Type: ColumnText},
	{Name: ColTimezone, Type: ColumnText},
	{Name: ColGMTOffset, Type: ColumnInteger},
	{Name: ColSoloProjectTier, Type: ColumnInteger},
	{Name: ColVoyageSignupIDs, Type: ColumnIntegerList},
	{Name: ColVoyageTiers, Type: ColumnTextList},
}

// MemberColumnNames returns the column names in storage order.
func MemberColumnNames() []string {
	names := make([]string, len(MemberColumns))
	for i, c := range MemberColumns {
		names[i] = c.Name
	}
	return names
}

// ListColumns returns the set of list-typed column names.
func ListColumns() map[string]ColumnType {
	out := make(map[string]ColumnType)
	for _, c := range MemberColumns {
		if c.Type.IsList() {
			out[c.Name] = c.Type
		}
	}
	return out
}

// Values returns the member's fields in MemberColumns order.
// Nil pointers stay untyped nil so drivers write NULL.
func (m *Member) Values() []any {
	return []any{
		m.ID,
		timeOrNil(m.Timestamp),
		stringOrNil(m.Gender),
		stringOrNil(m.Goal),
		stringOrNil(m.GoalOther),
		stringOrNil(m.Source),
		stringOrNil(m.SourceOther),
		stringOrNil(m.Role),
		stringOrNil(m.CountryCode),
		stringOrNil(m.CountryName),
		stringOrNil(m.Timezone),
		intOrNil(m.GMTOffset),
		intOrNil(m.SoloProjectTier),
		nonNilInt64s(m.VoyageSignupIDs),
		nonNilStrings(m.VoyageTiers),
	}
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func intOrNil(i *int) any {
	if i == nil {
		return nil
	}
	return int64(*i)
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nonNilInt64s(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// OutputValue normalizes a value read back from the warehouse so every
// backend yields the same shapes: int64 integers, UTC timestamps and []any
// lists. Values of an unexpected shape are returned unchanged.
func (c Column) OutputValue(v any) any {
	if v == nil {
		return nil
	}
	switch c.Type {
	case ColumnInteger:
		if i, ok := canonicalInteger(v); ok {
			return i
		}
	case ColumnText:
		if s, ok := canonicalString(v); ok {
			return s
		}
	case ColumnTimestamp:
		switch t := v.(type) {
		case time.Time:
			return t.UTC()
		case string:
			if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
				return parsed.UTC()
			}
		}
	case ColumnIntegerList:
		return outputList(v, canonicalInteger)
	case ColumnTextList:
		return outputList(v, canonicalString)
	}
	return v
}

func outputList(v any, canonical func(any) (any, bool)) any {
	var items []any
	switch l := v.(type) {
	case []any:
		items = l
	case []int64:
		for _, i := range l {
			items = append(items, i)
		}
	case []string:
		for _, s := range l {
			items = append(items, s)
		}
	default:
		return v
	}

	out := make([]any, len(items))
	for i, item := range items {
		if c, ok := canonical(item); ok {
			out[i] = c
		} else {
			out[i] = item
		}
	}
	return out
}

// LookupColumn returns the member column with the given name.
func LookupColumn(name string) (Column, bool) {
	for _, c := range MemberColumns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
