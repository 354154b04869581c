package country

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func stubResolver() Resolver {
	names := map[string]string{
		"US": "United States",
		"PH": "Philippines",
		"CI": "Côte d’Ivoire",
		"DE": "Germany",
	}
	return ResolverFunc(func(code string) (string, bool) {
		name, ok := names[code]
		return name, ok
	})
}

func TestReconcile(t *testing.T) {
	r := NewReconciler(stubResolver(), nil)

	tests := []struct {
		name         string
		code         *string
		rawName      *string
		wantCode     *string
		wantName     *string
		correction   Correction
		unresolved   bool
		nameMismatch bool
	}{
		{
			name:     "plain code",
			code:     strPtr("US"),
			rawName:  strPtr("United States"),
			wantCode: strPtr("US"),
			wantName: strPtr("United States"),
		},
		{
			name:     "lowercase and padded",
			code:     strPtr(" de "),
			wantCode: strPtr("DE"),
			wantName: strPtr("Germany"),
		},
		{
			name:       "composite from override table",
			code:       strPtr("Philippines (PH)"),
			rawName:    strPtr("Philippines"),
			wantCode:   strPtr("PH"),
			wantName:   strPtr("Philippines"),
			correction: Replaced,
		},
		{
			name:       "composite outside the table",
			code:       strPtr("Germany (de)"),
			wantCode:   strPtr("DE"),
			wantName:   strPtr("Germany"),
			correction: Extracted,
		},
		{
			name:       "listed invalid code",
			code:       strPtr("UT"),
			rawName:    strPtr("Utah"),
			correction: Nulled,
			// raw name present but nothing derived
			nameMismatch: true,
		},
		{
			name:       "malformed code",
			code:       strPtr("USA"),
			correction: Nulled,
		},
		{
			name:       "unknown but well formed",
			code:       strPtr("QQ"),
			wantCode:   strPtr("QQ"),
			unresolved: true,
		},
		{
			name:         "raw name disagrees with code",
			code:         strPtr("US"),
			rawName:      strPtr("Canada"),
			wantCode:     strPtr("US"),
			wantName:     strPtr("United States"),
			nameMismatch: true,
		},
		{
			name:     "accent and case differences are not a mismatch",
			code:     strPtr("CI"),
			rawName:  strPtr("cote d’ivoire"),
			wantCode: strPtr("CI"),
			wantName: strPtr("Côte d’Ivoire"),
		},
		{
			name: "missing code ignores raw name for derivation",
			code: nil, rawName: strPtr("Germany"),
			nameMismatch: true,
		},
		{
			name: "all missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Reconcile(tt.code, tt.rawName)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.correction, got.Correction)
			assert.Equal(t, tt.unresolved, got.Unresolved)
			assert.Equal(t, tt.nameMismatch, got.NameMismatch)
		})
	}
}

func TestReconcile_NameOnlyFromCode(t *testing.T) {
	r := NewReconciler(stubResolver(), nil)
	codes := []*string{nil, strPtr("US"), strPtr("UT"), strPtr("QQ"), strPtr("x")}
	names := []*string{nil, strPtr("France"), strPtr("United States")}
	for _, c := range codes {
		for _, n := range names {
			got := r.Reconcile(c, n)
			if got.Name != nil {
				require.NotNil(t, got.Code)
				want, ok := stubResolver().Name(*got.Code)
				require.True(t, ok)
				assert.Equal(t, want, *got.Name)
			}
		}
	}
}

func TestReconcile_Concurrent(t *testing.T) {
	r := NewReconciler(stubResolver(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got := r.Reconcile(strPtr("CI"), strPtr("Cote d’Ivoire"))
				assert.False(t, got.NameMismatch)
			}
		}()
	}
	wg.Wait()
}

func TestNewResolver(t *testing.T) {
	res := NewResolver()

	name, ok := res.Name("US")
	require.True(t, ok)
	assert.Equal(t, "United States", name)

	name, ok = res.Name("PH")
	require.True(t, ok)
	assert.Equal(t, "Philippines", name)

	_, ok = res.Name("UT")
	assert.False(t, ok)
	_, ok = res.Name("us")
	assert.False(t, ok)
	_, ok = res.Name("USA")
	assert.False(t, ok)
}

func TestParseOverrides(t *testing.T) {
	o, err := ParseOverrides([]byte("replace:\n  \"Korea (KR)\": kr\ninvalid: [xx]\n"))
	require.NoError(t, err)

	code, ok := o.replacement("Korea (KR)")
	assert.True(t, ok)
	assert.Equal(t, "KR", code)
	assert.True(t, o.isInvalid("XX"))

	_, err = ParseOverrides([]byte("replace:\n  foo: USA\n"))
	assert.Error(t, err)

	_, err = ParseOverrides([]byte("replace: [\n"))
	assert.Error(t, err)
}

func TestDefaultOverrides(t *testing.T) {
	o := DefaultOverrides()
	code, ok := o.replacement("Philippines (PH)")
	assert.True(t, ok)
	assert.Equal(t, "PH", code)
	assert.True(t, o.isInvalid("UT"))
}
