// Package country reconciles the survey's country code and country name cells.
//
// The code cell is authoritative. It was a required, validated field in the
// signup form while the name cell was a lookup that disagreed with the code on
// a number of rows, so the cleaned name is always derived from the code and the
// raw name is only used to report disagreements.
package country

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Resolver maps an ISO 3166-1 alpha-2 code to a canonical country name.
type Resolver interface {
	Name(code string) (string, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(code string) (string, bool)

func (f ResolverFunc) Name(code string) (string, bool) { return f(code) }

type displayResolver struct {
	namer display.Namer
}

// NewResolver returns a Resolver backed by the CLDR English region names.
func NewResolver() Resolver {
	return displayResolver{namer: display.English.Regions()}
}

func (r displayResolver) Name(code string) (string, bool) {
	if !isAlpha2(code) {
		return "", false
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return "", false
	}
	name := r.namer.Name(region)
	if name == "" {
		return "", false
	}
	return name, true
}

// Correction describes what the override table did to a raw code.
type Correction int

const (
	NoCorrection Correction = iota
	// Replaced means the raw cell was found in the replace table.
	Replaced
	// Extracted means the code was pulled out of a "Name (CODE)" cell.
	Extracted
	// Nulled means the cell was malformed or listed as invalid.
	Nulled
)

func (c Correction) String() string {
	switch c {
	case Replaced:
		return "replaced"
	case Extracted:
		return "extracted"
	case Nulled:
		return "nulled"
	}
	return "none"
}

// Result is the reconciled pair for one row.
type Result struct {
	Code       *string
	Name       *string
	Correction Correction
	// Unresolved is set when a well-formed code has no known name.
	Unresolved bool
	// NameMismatch is set when the raw name is present and disagrees with Name.
	NameMismatch bool
}

var compositePattern = regexp.MustCompile(`^.*\(\s*([A-Za-z]{2})\s*\)\s*$`)

// Reconciler derives the cleaned code/name pair from raw cells.
// It is safe for concurrent use.
type Reconciler struct {
	resolver  Resolver
	overrides *Overrides
}

// NewReconciler creates a Reconciler. A nil overrides table means DefaultOverrides.
func NewReconciler(resolver Resolver, overrides *Overrides) *Reconciler {
	if overrides == nil {
		overrides = DefaultOverrides()
	}
	return &Reconciler{resolver: resolver, overrides: overrides}
}

// Reconcile corrects the raw code and derives the name from it.
func (r *Reconciler) Reconcile(rawCode, rawName *string) Result {
	var res Result
	code, correction := r.correctCode(rawCode)
	res.Correction = correction

	if code != "" {
		res.Code = &code
		if name, ok := r.resolver.Name(code); ok {
			res.Name = &name
		} else {
			res.Unresolved = true
		}
	}

	if rawName != nil && strings.TrimSpace(*rawName) != "" {
		res.NameMismatch = res.Name == nil || fold(*rawName) != fold(*res.Name)
	}
	return res
}

func (r *Reconciler) correctCode(raw *string) (string, Correction) {
	if raw == nil {
		return "", NoCorrection
	}
	cell := strings.TrimSpace(*raw)
	if cell == "" {
		return "", NoCorrection
	}

	correction := NoCorrection
	code := strings.ToUpper(cell)
	if replacement, ok := r.overrides.replacement(cell); ok {
		code, correction = replacement, Replaced
	} else if m := compositePattern.FindStringSubmatch(cell); m != nil {
		code, correction = strings.ToUpper(m[1]), Extracted
	}

	if !isAlpha2(code) || r.overrides.isInvalid(code) {
		return "", Nulled
	}
	return code, correction
}

func isAlpha2(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// fold lowercases, strips diacritics and collapses whitespace so that
// "Côte d’Ivoire" and "cote d’ivoire" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}
