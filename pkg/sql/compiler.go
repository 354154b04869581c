package sql

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/apperrors"
	"github.com/chingu-voyages/member-demographics/pkg/models"
)

// LegalValues reports whether a value is a known value of an attribute.
// The unique-value cache snapshot implements it.
type LegalValues interface {
	Contains(attr models.Attribute, value any) bool
}

// Clause is one resolved filter entry.
type Clause struct {
	Attribute models.Attribute
	Exclude   bool
	Values    []any
}

// Predicate is a compiled, validated filter. Its SQL is AND-combined clauses:
// includes first, then excludes, each in registry order.
type Predicate struct {
	dialect Dialect
	clauses []Clause
}

// Clauses returns the compiled clauses in rendering order.
func (p *Predicate) Clauses() []Clause {
	return p.clauses
}

// Empty reports whether the predicate matches every row.
func (p *Predicate) Empty() bool {
	return p == nil || len(p.clauses) == 0
}

// ToSql renders the predicate with '?' placeholders.
func (p *Predicate) ToSql() (string, []any, error) {
	if p.Empty() {
		return "", nil, nil
	}
	parts := make([]string, 0, len(p.clauses))
	var args []any
	for _, c := range p.clauses {
		s, a, err := clauseSqlizer(p.dialect, c).ToSql()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, s)
		args = append(args, a...)
	}
	return strings.Join(parts, " AND "), args, nil
}

// apply adds the clauses to b, rendered in dialect d. Builders pass their own
// dialect, so a predicate compiled for another warehouse still yields
// consistent SQL.
func (p *Predicate) apply(b sq.SelectBuilder, d Dialect) sq.SelectBuilder {
	if p.Empty() {
		return b
	}
	for _, c := range p.clauses {
		b = b.Where(clauseSqlizer(d, c))
	}
	return b
}

func clauseSqlizer(d Dialect, c Clause) sq.Sqlizer {
	column := c.Attribute.Column()
	if c.Attribute.Kind() == models.ScalarAttribute {
		col := d.QuoteIdent(column)
		if c.Exclude {
			return sq.NotEq{col: c.Values}
		}
		return sq.Eq{col: c.Values}
	}

	op := "EXISTS"
	if c.Exclude {
		op = "NOT EXISTS"
	}
	return sq.Expr(
		fmt.Sprintf("%s (SELECT 1 FROM %s WHERE elem.value IN (%s))",
			op, d.ListElements(column, "elem"), sq.Placeholders(len(c.Values))),
		c.Values...,
	)
}

// Compiler turns include/exclude filter requests into predicates.
type Compiler struct {
	dialect Dialect
	logger  *zap.Logger
}

// NewCompiler creates a compiler emitting SQL for the given dialect.
func NewCompiler(dialect Dialect, logger *zap.Logger) *Compiler {
	return &Compiler{
		dialect: dialect,
		logger:  logger.Named("filter-compiler"),
	}
}

type resolvedEntry struct {
	attr   models.Attribute
	values []any
}

// Compile validates a filter request against the attribute registry and the
// legal value set, and builds its predicate. Validation happens in full before
// any SQL is produced; every failure is a client error.
func (c *Compiler) Compile(req *models.FilterRequest, legal LegalValues) (*Predicate, error) {
	if legal == nil {
		return nil, apperrors.ErrCacheUnavailable
	}
	if req == nil {
		req = &models.FilterRequest{}
	}

	include, err := resolveEntries(req.Include, "include")
	if err != nil {
		return nil, err
	}
	exclude, err := resolveEntries(req.Exclude, "exclude")
	if err != nil {
		return nil, err
	}

	excluded := make(map[models.Attribute]bool, len(exclude))
	for _, e := range exclude {
		excluded[e.attr] = true
	}
	for _, e := range include {
		if excluded[e.attr] {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrConflictingFilter, e.attr.Name())
		}
	}

	pred := &Predicate{dialect: c.dialect}
	for _, side := range []struct {
		entries []resolvedEntry
		exclude bool
	}{{include, false}, {exclude, true}} {
		for _, e := range side.entries {
			values, err := typedValues(e)
			if err != nil {
				return nil, err
			}
			pred.clauses = append(pred.clauses, Clause{Attribute: e.attr, Exclude: side.exclude, Values: values})
		}
	}

	for _, clause := range pred.clauses {
		if err := c.checkLegal(clause, legal); err != nil {
			return nil, err
		}
	}
	return pred, nil
}

// resolveEntries maps request keys to registered attributes, sorted into
// registry order.
func resolveEntries(m map[string][]any, side string) ([]resolvedEntry, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[models.Attribute]string, len(m))
	entries := make([]resolvedEntry, 0, len(m))
	for _, name := range names {
		attr, ok := models.LookupAttribute(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownAttribute, name)
		}
		if prev, dup := seen[attr]; dup {
			return nil, fmt.Errorf("%w: %s names %s twice (%q and %q)",
				apperrors.ErrInvalidFilter, side, attr.Name(), prev, name)
		}
		seen[attr] = name
		if len(m[name]) == 0 {
			return nil, fmt.Errorf("%w: %s %s", apperrors.ErrEmptyFilterValues, side, attr.Name())
		}
		entries = append(entries, resolvedEntry{attr: attr, values: m[name]})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].attr < entries[j].attr })
	return entries, nil
}

func typedValues(e resolvedEntry) ([]any, error) {
	values := make([]any, len(e.values))
	for i, raw := range e.values {
		v, ok := e.attr.RequestValue(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects %s values, got %s",
				apperrors.ErrFilterValueType, e.attr.Name(), e.attr.ValueType(), describe(raw))
		}
		values[i] = v
	}
	return values, nil
}

func (c *Compiler) checkLegal(clause Clause, legal LegalValues) error {
	for _, v := range clause.Values {
		if legal.Contains(clause.Attribute, v) {
			continue
		}
		if finding := DetectInjection(clause.Attribute.Name(), v); finding != nil {
			c.logger.Warn("Rejected filter value looks like SQL injection",
				zap.String("attribute", finding.Attribute),
				zap.String("fingerprint", finding.Fingerprint),
				zap.String("value", finding.Value))
		}
		return fmt.Errorf("%w: %v is not a value of %s", apperrors.ErrInvalidFilterValue, v, clause.Attribute.Name())
	}
	return nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number " + fmt.Sprint(v)
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
