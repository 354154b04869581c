package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	tierPattern     = regexp.MustCompile(`^Tier\s+(\d+)`)
	signupIDPattern = regexp.MustCompile(`V(\d+)`)
)

// Tier extracts the number from labels like "Tier 2 - Intermediate".
func Tier(raw *string) *int {
	if raw == nil {
		return nil
	}
	m := tierPattern.FindStringSubmatch(strings.TrimSpace(*raw))
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// SignupIDs returns the number of every "V<digits>" marker in order,
// e.g. "V42-tier2-team-07, V43-tier3-team-21" gives [42 43]. Voyage numbers
// start at 1, so "V0" is skipped. Never nil.
func SignupIDs(raw *string) []int64 {
	ids := []int64{}
	if raw == nil {
		return ids
	}
	for _, m := range signupIDPattern.FindAllStringSubmatch(*raw, -1) {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// TierList splits a comma-separated tier cell into trimmed tokens, keeping order.
// Tokens are not validated; whitespace-only tokens are dropped. Never nil.
func TierList(raw *string) []string {
	tiers := []string{}
	if raw == nil {
		return tiers
	}
	for _, token := range strings.Split(*raw, ",") {
		if token = strings.TrimSpace(token); token != "" {
			tiers = append(tiers, token)
		}
	}
	return tiers
}

// Role joins the role type and voyage role cells with a single space.
func Role(roleType, voyageRole *string) *string {
	parts := make([]string, 0, 2)
	for _, p := range []*string{roleType, voyageRole} {
		if s := Text(p); s != nil {
			parts = append(parts, *s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	role := strings.Join(parts, " ")
	return &role
}

// Text trims a free-text cell, collapses it to NFC and maps empty to nil.
func Text(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := strings.TrimFunc(norm.NFC.String(*raw), unicode.IsSpace)
	if s == "" {
		return nil
	}
	return &s
}
