package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionFinding describes a filter value that libinjection fingerprints as
// a SQL injection attempt.
type InjectionFinding struct {
	Attribute   string // Attribute the value was submitted for
	Fingerprint string // libinjection fingerprint of the detected pattern
	Value       string // The offending value
}

// DetectInjection fingerprints a rejected filter value. Values are always
// bound, so a finding never changes how a request is answered; it only marks
// the rejection as hostile in the logs.
//
// Only string values are checked. Integers cannot carry an injection payload
// and return nil.
//
// Example:
//
//	DetectInjection("Gender", "FEMALE")
//	// nil
//
//	DetectInjection("Source", "x' OR '1'='1")
//	// &InjectionFinding{Attribute: "Source", Fingerprint: "s&sos", ...}
func DetectInjection(attribute string, value any) *InjectionFinding {
	s, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(s)
	if !isSQLi {
		return nil
	}
	return &InjectionFinding{
		Attribute:   attribute,
		Fingerprint: string(fingerprint),
		Value:       s,
	}
}
