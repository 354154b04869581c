package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes_RegistryShape(t *testing.T) {
	attrs := Attributes()
	require.Len(t, attrs, 11)

	var lists []string
	for _, a := range attrs {
		assert.True(t, a.Valid())
		assert.NotEmpty(t, a.Name())
		assert.NotEmpty(t, a.Column())
		if a.Kind() == ListAttribute {
			lists = append(lists, a.Name())
		}
	}
	assert.Equal(t, []string{"Voyage_Signup_ids", "Voyage_Tiers"}, lists)

	assert.Equal(t, IntegerValue, AttrGMTOffset.ValueType())
	assert.Equal(t, IntegerValue, AttrSoloProjectTier.ValueType())
	assert.Equal(t, IntegerValue, AttrVoyageSignupIDs.ValueType())
	assert.Equal(t, StringValue, AttrVoyageTiers.ValueType())
	assert.Equal(t, StringValue, AttrGender.ValueType())
}

func TestAttributes_ColumnsExistInTable(t *testing.T) {
	columns := make(map[string]Column)
	for _, c := range MemberColumns {
		columns[c.Name] = c
	}
	for _, a := range Attributes() {
		c, ok := columns[a.Column()]
		require.True(t, ok, "attribute %s has no column", a)
		assert.Equal(t, a.Kind() == ListAttribute, c.Type.IsList(), "kind mismatch for %s", a)
	}
}

func TestLookupAttribute(t *testing.T) {
	tests := []struct {
		input string
		want  Attribute
		ok    bool
	}{
		{"Gender", AttrGender, true},
		{"gender", AttrGender, true},
		{"COUNTRY_CODE", AttrCountryCode, true},
		{"country_code", AttrCountryCode, true},
		{" Voyage_Tiers ", AttrVoyageTiers, true},
		{"voyage_signup_ids", AttrVoyageSignupIDs, true},
		{"id", 0, false},
		{"email", 0, false},
		{"", 0, false},
		{"gender; DROP TABLE members", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := LookupAttribute(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestAttribute_TextRoundTrip(t *testing.T) {
	m := map[Attribute][]string{AttrGender: {"FEMALE"}}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Gender":["FEMALE"]}`, string(data))

	var back map[Attribute][]string
	require.NoError(t, json.Unmarshal([]byte(`{"gender":["MALE"]}`), &back))
	assert.Equal(t, []string{"MALE"}, back[AttrGender])

	assert.Error(t, json.Unmarshal([]byte(`{"bogus":["x"]}`), &back))
}

func TestAttribute_RequestValue(t *testing.T) {
	tests := []struct {
		name  string
		attr  Attribute
		value any
		want  any
		ok    bool
	}{
		{"string attr accepts string", AttrGender, "FEMALE", "FEMALE", true},
		{"string attr rejects number", AttrGender, json.Number("1"), nil, false},
		{"int attr accepts json integer", AttrGMTOffset, json.Number("-5"), int64(-5), true},
		{"int attr rejects json fraction", AttrGMTOffset, json.Number("1.5"), nil, false},
		{"int attr accepts integral float", AttrSoloProjectTier, float64(3), int64(3), true},
		{"int attr rejects fractional float", AttrSoloProjectTier, 2.5, nil, false},
		{"int attr rejects numeric string", AttrSoloProjectTier, "3", nil, false},
		{"list int attr accepts integer", AttrVoyageSignupIDs, json.Number("47"), int64(47), true},
		{"list string attr rejects bool", AttrVoyageTiers, true, nil, false},
		{"null rejected", AttrGender, nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.attr.RequestValue(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttribute_CanonicalValue(t *testing.T) {
	v, ok := AttrGMTOffset.CanonicalValue(int32(-5))
	assert.True(t, ok)
	assert.Equal(t, int64(-5), v)

	v, ok = AttrVoyageSignupIDs.CanonicalValue("47")
	assert.True(t, ok)
	assert.Equal(t, int64(47), v)

	v, ok = AttrGender.CanonicalValue([]byte("MALE"))
	assert.True(t, ok)
	assert.Equal(t, "MALE", v)

	_, ok = AttrGender.CanonicalValue(nil)
	assert.False(t, ok)
}

func TestRawMember_UnmarshalJSON(t *testing.T) {
	raw := `{
		"Timestamp": "2023-04-05 10:11:12",
		"Gender": "FEMALE",
		"Country Code": "US",
		"Timezone": "",
		"Solo Project Tier": 2,
		"Voyage (from Voyage Signups)": null,
		"Email": "someone@example.com"
	}`
	var r RawMember
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	require.NotNil(t, r.Timestamp)
	assert.Equal(t, "2023-04-05 10:11:12", *r.Timestamp)
	require.NotNil(t, r.SoloProjectTier)
	assert.Equal(t, "2", *r.SoloProjectTier)
	assert.Nil(t, r.Timezone)
	assert.Nil(t, r.VoyageSignups)
	assert.Nil(t, r.CountryName)
}

func TestMember_ValuesMatchColumns(t *testing.T) {
	m := &Member{ID: 1}
	values := m.Values()
	require.Len(t, values, len(MemberColumns))
	assert.Equal(t, int64(1), values[0])
	assert.Nil(t, values[1])
	assert.Equal(t, []int64{}, values[13])
	assert.Equal(t, []string{}, values[14])
}

func TestColumn_OutputValue(t *testing.T) {
	col := func(name string) Column {
		c, ok := LookupColumn(name)
		require.True(t, ok, name)
		return c
	}

	assert.Equal(t, int64(8), col(ColGMTOffset).OutputValue(int32(8)))
	assert.Equal(t, "FEMALE", col(ColGender).OutputValue([]byte("FEMALE")))
	assert.Nil(t, col(ColGoal).OutputValue(nil))

	want := time.Date(2024, 1, 3, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, want, col(ColTimestamp).OutputValue("2024-01-03T15:30:00Z"))
	assert.Equal(t, want, col(ColTimestamp).OutputValue(want.In(time.FixedZone("X", 3600))))

	assert.Equal(t, []any{int64(44), int64(45)}, col(ColVoyageSignupIDs).OutputValue([]any{"44", int32(45)}))
	assert.Equal(t, []any{"Tier 1"}, col(ColVoyageTiers).OutputValue([]string{"Tier 1"}))
	assert.Equal(t, []any{}, col(ColVoyageTiers).OutputValue([]any{}))

	_, ok := LookupColumn("email")
	assert.False(t, ok)
}
