package sql

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/chingu-voyages/member-demographics/pkg/models"
)

const (
	// ValueColumn is the result column of distinct-value queries.
	ValueColumn = "value"
	// CountColumn is the result column holding per-group row counts.
	CountColumn = "count"

	listAlias = "v"
)

// Builder renders the statements issued against the cleaned members table.
type Builder struct {
	dialect Dialect
	table   Table
	sb      sq.StatementBuilderType
}

// NewBuilder creates a statement builder for one dialect and table.
func NewBuilder(dialect Dialect, table Table) *Builder {
	return &Builder{
		dialect: dialect,
		table:   table,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.PlaceholderFormat()),
	}
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() Dialect { return b.dialect }

// Table returns the queried table.
func (b *Builder) Table() Table { return b.table }

func (b *Builder) from() string {
	return b.table.Qualified(b.dialect)
}

// valueExpr returns the expression yielding one value per row for attr and
// the join that flattens it when attr is a list.
func (b *Builder) valueExpr(attr models.Attribute) (expr, join string) {
	if attr.Kind() == models.ListAttribute {
		return listAlias + ".value", b.dialect.ListJoin(attr.Column(), listAlias)
	}
	return b.dialect.QuoteIdent(attr.Column()), ""
}

// DistinctValues selects the distinct non-null values of attr, flattening
// list attributes.
func (b *Builder) DistinctValues(attr models.Attribute) (string, []any, error) {
	expr, join := b.valueExpr(attr)
	q := b.sb.Select(expr + " AS " + b.dialect.QuoteIdent(ValueColumn)).
		Distinct().
		From(b.from())
	if join != "" {
		q = q.JoinClause(join)
	}
	return q.Where(expr + " IS NOT NULL").
		OrderBy(b.dialect.QuoteIdent(ValueColumn)).
		ToSql()
}

// CountByValue counts rows per value of attr. List attributes count each
// element occurrence. Null values form their own group. When dates is set,
// rows are restricted to timestamps whose UTC day falls in the range.
func (b *Builder) CountByValue(attr models.Attribute, dates *models.DateRange) (string, []any, error) {
	expr, join := b.valueExpr(attr)
	selected := expr
	if join != "" {
		selected += " AS " + b.dialect.QuoteIdent(attr.Column())
	}
	q := b.sb.Select(selected, "COUNT(*) AS "+b.dialect.QuoteIdent(CountColumn)).From(b.from())
	if join != "" {
		q = q.JoinClause(join)
	}
	if dates != nil {
		q = q.Where(b.dialect.DateOf(models.ColTimestamp)+" BETWEEN ? AND ?",
			b.dialect.DateParam(dates.Start), b.dialect.DateParam(dates.End))
	}
	return q.GroupBy(expr).OrderBy(expr).ToSql()
}

// FilteredMembers selects full member rows matching pred, ordered by id and
// windowed by page.
func (b *Builder) FilteredMembers(pred *Predicate, page models.Page) (string, []any, error) {
	cols := models.MemberColumnNames()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = b.dialect.QuoteIdent(c)
	}

	q := pred.apply(b.sb.Select(quoted...).From(b.from()), b.dialect).
		OrderBy(b.dialect.QuoteIdent(models.ColID))
	window, args := b.dialect.Paginate(page.Limit, page.Offset)
	return q.Suffix(window, args...).ToSql()
}

// CountryCounts counts rows matching pred per country code.
func (b *Builder) CountryCounts(pred *Predicate) (string, []any, error) {
	col := b.dialect.QuoteIdent(models.ColCountryCode)
	q := b.sb.Select(col, "COUNT(*) AS "+b.dialect.QuoteIdent(CountColumn)).From(b.from())
	return pred.apply(q, b.dialect).GroupBy(col).OrderBy(col).ToSql()
}

// CountRows counts every row of the table.
func (b *Builder) CountRows() (string, []any, error) {
	return b.sb.Select("COUNT(*) AS " + b.dialect.QuoteIdent(CountColumn)).From(b.from()).ToSql()
}

// CreateTable renders DDL for the cleaned members table.
func (b *Builder) CreateTable() string {
	defs := make([]string, 0, len(models.MemberColumns)+1)
	var pk []string
	for _, c := range models.MemberColumns {
		def := b.dialect.QuoteIdent(c.Name) + " " + b.dialect.ColumnType(c.Type)
		if c.PrimaryKey {
			def += " NOT NULL"
			pk = append(pk, b.dialect.QuoteIdent(c.Name))
		}
		defs = append(defs, def)
	}
	defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	return b.dialect.CreateTable(b.from(), strings.Join(defs, ", "))
}

// ClearTable renders the statement that empties the members table.
func (b *Builder) ClearTable() string {
	return b.dialect.ClearTable(b.from())
}

// InsertRows renders one multi-row insert of pre-encoded member rows, each in
// models.MemberColumns order.
func (b *Builder) InsertRows(rows [][]any) (string, []any, error) {
	cols := models.MemberColumnNames()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = b.dialect.QuoteIdent(c)
	}
	q := b.sb.Insert(b.from()).Columns(quoted...)
	for _, r := range rows {
		if len(r) != len(cols) {
			return "", nil, fmt.Errorf("insert row has %d values, want %d", len(r), len(cols))
		}
		q = q.Values(r...)
	}
	return q.ToSql()
}
