package logging

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	// MaxQueryLogLength is the maximum length of a query to log
	MaxQueryLogLength = 100
	// MaxParamsLogged caps how many bound parameters are logged with a query
	MaxParamsLogged = 20
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches ADO-style "User ID=sa" pairs used by SQL Server connection strings
	userIDPattern = regexp.MustCompile(`(?i)(user id|uid)=[^;&]+`)

	// Pattern to match connection string credentials (user:pass@host format)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@]+@[^/\s?]+`)
)

// SanitizeConnectionString removes sensitive data from connection strings
// Use this before logging any connection string
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = userIDPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive data
// Use this before logging any error from warehouse operations
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeConnectionString(err.Error())
}

// SanitizeQuery truncates and sanitizes a SQL query for logging
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := TruncateString(query, MaxQueryLogLength)
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)

	return sanitized
}

// SanitizeParams renders bound query parameters for logging. Filter values are
// survey categories, not secrets, so they are logged verbatim but truncated.
func SanitizeParams(params []any) []string {
	n := min(len(params), MaxParamsLogged)
	out := make([]string, 0, n+1)
	for _, p := range params[:n] {
		out = append(out, TruncateString(fmt.Sprintf("%v", p), 40))
	}
	if len(params) > n {
		out = append(out, fmt.Sprintf("... %d more", len(params)-n))
	}
	return out
}

// TruncateString cuts s to at most maxLen bytes and adds an ellipsis. The cut
// never splits a UTF-8 sequence, so names like "Côte d’Ivoire" stay valid.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := max(maxLen, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
