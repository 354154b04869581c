package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Bounds of the canonical UTC offset range.
const (
	MinOffset = -11
	MaxOffset = 12
)

var (
	// dashReplacer maps the dash glyphs seen in pasted timezone labels to ASCII '-'.
	dashReplacer = strings.NewReplacer(
		"−", "-", // minus sign
		"–", "-", // en dash
		"—", "-", // em dash
		"‒", "-", // figure dash
		"﹣", "-", // small hyphen-minus
		"－", "-", // fullwidth hyphen-minus
	)

	gmtPattern       = regexp.MustCompile(`(?i)^GMT\s*([+-]?\d+)`)
	canonicalPattern = regexp.MustCompile(`^GMT([+-]\d+)$`)
)

// OffsetResult is the outcome of canonicalizing one timezone cell.
type OffsetResult struct {
	// Canonical is "GMT+k"/"GMT-k", or nil when the cell could not be read.
	Canonical *string
	// Wrapped is true when the raw offset was outside [-11, 12] and was folded back.
	Wrapped bool
}

// UTCOffset canonicalizes a free-text timezone label such as "GMT−5 (New York)".
// Only the leading GMT token is read; trailing text is discarded. Offsets outside
// [-11, 12] are wrapped modulo 24, so "GMT+22" becomes "GMT-2".
func UTCOffset(raw *string) OffsetResult {
	if raw == nil {
		return OffsetResult{}
	}
	s := strings.TrimSpace(dashReplacer.Replace(*raw))
	if s == "" {
		return OffsetResult{}
	}

	m := gmtPattern.FindStringSubmatch(s)
	if m == nil {
		return OffsetResult{}
	}
	offset, err := strconv.Atoi(m[1])
	if err != nil {
		return OffsetResult{}
	}

	k := WrapOffset(offset)
	canonical := FormatOffset(k)
	return OffsetResult{Canonical: &canonical, Wrapped: k != offset}
}

// WrapOffset folds any integer hour offset into [-11, 12] modulo 24.
func WrapOffset(offset int) int {
	k := ((offset % 24) + 24) % 24
	if k > MaxOffset {
		k -= 24
	}
	if k < MinOffset {
		k += 24
	}
	return k
}

// FormatOffset renders an offset as "GMT+k" or "GMT-k". Zero renders as "GMT+0".
func FormatOffset(k int) string {
	if k >= 0 {
		return fmt.Sprintf("GMT+%d", k)
	}
	return fmt.Sprintf("GMT%d", k)
}

// ParseCanonicalOffset extracts the integer from a canonical "GMT±k" string.
// It is the only way the paired gmt_offset column is derived, so the two
// columns cannot disagree.
func ParseCanonicalOffset(canonical *string) *int {
	if canonical == nil {
		return nil
	}
	m := canonicalPattern.FindStringSubmatch(*canonical)
	if m == nil {
		return nil
	}
	k, err := strconv.Atoi(m[1])
	if err != nil || k < MinOffset || k > MaxOffset {
		return nil
	}
	return &k
}
