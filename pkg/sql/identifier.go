package sql

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxIdentifierLength is the longest schema or table name accepted from
// configuration. SQL Server allows 128 characters; Postgres truncates at 63.
const MaxIdentifierLength = 63

// ErrInvalidIdentifier indicates a configured schema or table name that cannot
// be quoted safely.
var ErrInvalidIdentifier = errors.New("invalid SQL identifier")

// ValidateIdentifier checks a configured identifier. Quoting handles embedded
// quote characters, so only empty names, control characters and statement
// separators are refused.
func ValidateIdentifier(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	if len(name) > MaxIdentifierLength {
		return fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidIdentifier, name, MaxIdentifierLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == ';' {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidIdentifier, name, r)
		}
	}
	return nil
}

// Table names the cleaned members table. Schema is optional; SQLite has no
// schemas and ignores it.
type Table struct {
	Schema string
	Name   string
}

// Validate checks both parts of the table name.
func (t Table) Validate() error {
	if t.Schema != "" {
		if err := ValidateIdentifier(t.Schema); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	if err := ValidateIdentifier(t.Name); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	return nil
}

// Qualified renders the quoted, schema-qualified table name for a dialect.
func (t Table) Qualified(d Dialect) string {
	if t.Schema == "" || d.Name() == "sqlite" {
		return d.QuoteIdent(t.Name)
	}
	return d.QuoteIdent(t.Schema) + "." + d.QuoteIdent(t.Name)
}

// String returns the unquoted dotted name used in logs and responses.
func (t Table) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}
