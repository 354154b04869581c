package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectInjection(t *testing.T) {
	tests := []struct {
		name      string
		attribute string
		value     any
		wantSQLi  bool
	}{
		// Survey values that must pass untouched
		{name: "gender category", attribute: "Gender", value: "FEMALE", wantSQLi: false},
		{name: "timezone", attribute: "Timezone", value: "GMT-5", wantSQLi: false},
		{name: "apostrophe in a name", attribute: "Country_Name", value: "O'Brien", wantSQLi: false},
		{name: "free text with dashes", attribute: "Goal", value: "This is a note -- with dashes", wantSQLi: false},
		{name: "keywords in prose", attribute: "Goal", value: "SELECT the best option from the menu", wantSQLi: false},
		{name: "empty string", attribute: "Source", value: "", wantSQLi: false},

		// Non-string values are never fingerprinted
		{name: "integer", attribute: "GMT_Offset", value: int64(5), wantSQLi: false},
		{name: "float", attribute: "GMT_Offset", value: 5.0, wantSQLi: false},
		{name: "nil", attribute: "Gender", value: nil, wantSQLi: false},

		// Classic payloads
		{name: "tautology", attribute: "Gender", value: "' OR '1'='1", wantSQLi: true},
		{name: "stacked drop", attribute: "Source", value: "'; DROP TABLE users--", wantSQLi: true},
		{name: "union select", attribute: "Role", value: "1 UNION SELECT * FROM passwords", wantSQLi: true},
		{name: "comment truncation", attribute: "Goal", value: "admin'--", wantSQLi: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectInjection(tt.attribute, tt.value)
			if !tt.wantSQLi {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.attribute, got.Attribute)
			assert.Equal(t, tt.value, got.Value)
			assert.NotEmpty(t, got.Fingerprint)
		})
	}
}
