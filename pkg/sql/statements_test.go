package sql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/models"
)

const pgMemberColumns = `"id", "timestamp", "gender", "goal", "goal_other", "source", "source_other", "role", ` +
	`"country_code", "country_name", "timezone", "gmt_offset", "solo_project_tier", "voyage_signup_ids", "voyage_tiers"`

func membersTable() Table {
	return Table{Schema: "public", Name: "members"}
}

func TestFilteredMembers_Postgres(t *testing.T) {
	b := NewBuilder(Postgres{}, membersTable())
	pred, err := NewCompiler(Postgres{}, zap.NewNop()).Compile(&models.FilterRequest{
		Include: map[string][]any{"Gender": {"FEMALE"}},
		Exclude: map[string][]any{"Source": {"OTHER"}},
	}, testLegal())
	require.NoError(t, err)

	sql, args, err := b.FilteredMembers(pred, models.Page{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT `+pgMemberColumns+` FROM "public"."members" WHERE "gender" IN ($1) AND "source" NOT IN ($2) ORDER BY "id" LIMIT $3`,
		sql)
	assert.Equal(t, []any{"FEMALE", "OTHER", int64(50)}, args)
}

func TestFilteredMembers_OffsetAndNoPredicate(t *testing.T) {
	offset := uint64(400)

	sql, args, err := NewBuilder(Postgres{}, membersTable()).
		FilteredMembers(nil, models.Page{Limit: 200, Offset: &offset})
	require.NoError(t, err)
	assert.Equal(t, `SELECT `+pgMemberColumns+` FROM "public"."members" ORDER BY "id" LIMIT $1 OFFSET $2`, sql)
	assert.Equal(t, []any{int64(200), int64(400)}, args)
}

func TestFilteredMembers_SQLServer(t *testing.T) {
	pred, err := NewCompiler(SQLServer{}, zap.NewNop()).Compile(&models.FilterRequest{
		Include: map[string][]any{"Voyage_Tiers": {"Tier 1"}},
	}, testLegal())
	require.NoError(t, err)

	sql, args, err := NewBuilder(SQLServer{}, Table{Schema: "dbo", Name: "members"}).
		FilteredMembers(pred, models.Page{Limit: 10})
	require.NoError(t, err)
	assert.Contains(t, sql, `FROM [dbo].[members] WHERE EXISTS (SELECT 1 FROM OPENJSON([voyage_tiers]) AS elem WHERE elem.value IN (@p1))`)
	assert.Contains(t, sql, `ORDER BY [id] OFFSET @p2 ROWS FETCH NEXT @p3 ROWS ONLY`)
	assert.Equal(t, []any{"Tier 1", int64(0), int64(10)}, args)
}

func TestFilteredMembers_RendersInBuilderDialect(t *testing.T) {
	pred, err := NewCompiler(Postgres{}, zap.NewNop()).Compile(&models.FilterRequest{
		Include: map[string][]any{"Gender": {"FEMALE"}, "Voyage_Tiers": {"Tier 1"}},
	}, testLegal())
	require.NoError(t, err)

	b := NewBuilder(SQLServer{}, Table{Schema: "dbo", Name: "members"})
	sql, args, err := b.FilteredMembers(pred, models.Page{Limit: 10})
	require.NoError(t, err)
	assert.Contains(t, sql, `WHERE [gender] IN (@p1) AND EXISTS (SELECT 1 FROM OPENJSON([voyage_tiers]) AS elem WHERE elem.value IN (@p2))`)
	assert.NotContains(t, sql, "unnest")
	assert.NotContains(t, sql, `"gender"`)
	assert.Equal(t, []any{"FEMALE", "Tier 1", int64(0), int64(10)}, args)

	sql, _, err = b.CountryCounts(pred)
	require.NoError(t, err)
	assert.Contains(t, sql, `[gender] IN (@p1)`)
	assert.NotContains(t, sql, "unnest")
}

func TestDistinctValues(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		attr    models.Attribute
		want    string
	}{
		{
			name:    "postgres scalar",
			dialect: Postgres{},
			attr:    models.AttrGender,
			want:    `SELECT DISTINCT "gender" AS "value" FROM "public"."members" WHERE "gender" IS NOT NULL ORDER BY "value"`,
		},
		{
			name:    "postgres list",
			dialect: Postgres{},
			attr:    models.AttrVoyageTiers,
			want: `SELECT DISTINCT v.value AS "value" FROM "public"."members" CROSS JOIN LATERAL unnest("voyage_tiers") AS v(value)` +
				` WHERE v.value IS NOT NULL ORDER BY "value"`,
		},
		{
			name:    "sqlite list ignores schema",
			dialect: SQLite{},
			attr:    models.AttrVoyageSignupIDs,
			want: `SELECT DISTINCT v.value AS "value" FROM "members" CROSS JOIN json_each("voyage_signup_ids") AS v` +
				` WHERE v.value IS NOT NULL ORDER BY "value"`,
		},
		{
			name:    "sqlserver list",
			dialect: SQLServer{},
			attr:    models.AttrVoyageTiers,
			want: `SELECT DISTINCT v.value AS [value] FROM [public].[members] CROSS APPLY OPENJSON([voyage_tiers]) AS v` +
				` WHERE v.value IS NOT NULL ORDER BY [value]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := NewBuilder(tt.dialect, membersTable()).DistinctValues(tt.attr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sql)
			assert.Empty(t, args)
		})
	}
}

func TestCountByValue(t *testing.T) {
	b := NewBuilder(Postgres{}, membersTable())

	sql, args, err := b.CountByValue(models.AttrCountryCode, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "country_code", COUNT(*) AS "count" FROM "public"."members" GROUP BY "country_code" ORDER BY "country_code"`,
		sql)
	assert.Empty(t, args)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	sql, args, err = b.CountByValue(models.AttrVoyageTiers, &models.DateRange{Start: start, End: end})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT v.value AS "voyage_tiers", COUNT(*) AS "count" FROM "public"."members"`+
			` CROSS JOIN LATERAL unnest("voyage_tiers") AS v(value)`+
			` WHERE ("timestamp" AT TIME ZONE 'UTC')::date BETWEEN $1 AND $2 GROUP BY v.value ORDER BY v.value`,
		sql)
	assert.Equal(t, []any{start, end}, args)

	sql, args, err = NewBuilder(SQLite{}, membersTable()).
		CountByValue(models.AttrGender, &models.DateRange{Start: start, End: end})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "gender", COUNT(*) AS "count" FROM "members" WHERE date("timestamp") BETWEEN ? AND ? GROUP BY "gender" ORDER BY "gender"`,
		sql)
	assert.Equal(t, []any{"2024-01-01", "2024-01-31"}, args)
}

func TestCountryCounts(t *testing.T) {
	pred, err := NewCompiler(Postgres{}, zap.NewNop()).Compile(&models.FilterRequest{
		Include: map[string][]any{"Solo_Project_Tier": {float64(2)}},
	}, testLegal())
	require.NoError(t, err)

	sql, args, err := NewBuilder(Postgres{}, membersTable()).CountryCounts(pred)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "country_code", COUNT(*) AS "count" FROM "public"."members" WHERE "solo_project_tier" IN ($1)`+
			` GROUP BY "country_code" ORDER BY "country_code"`,
		sql)
	assert.Equal(t, []any{int64(2)}, args)
}

func TestCreateTable(t *testing.T) {
	pg := NewBuilder(Postgres{}, membersTable()).CreateTable()
	assert.Contains(t, pg, `CREATE TABLE IF NOT EXISTS "public"."members" (`)
	assert.Contains(t, pg, `"id" BIGINT NOT NULL`)
	assert.Contains(t, pg, `"timestamp" TIMESTAMPTZ`)
	assert.Contains(t, pg, `"voyage_tiers" TEXT[] NOT NULL DEFAULT '{}'`)
	assert.Contains(t, pg, `PRIMARY KEY ("id")`)

	ms := NewBuilder(SQLServer{}, Table{Schema: "dbo", Name: "members"}).CreateTable()
	assert.Contains(t, ms, `IF OBJECT_ID(N'[dbo].[members]', N'U') IS NULL CREATE TABLE [dbo].[members] (`)
	assert.Contains(t, ms, `[voyage_signup_ids] NVARCHAR(MAX) NOT NULL DEFAULT '[]'`)
}

func TestInsertRows(t *testing.T) {
	b := NewBuilder(SQLite{}, Table{Name: "members"})
	row := make([]any, len(models.MemberColumns))
	row[0] = int64(1)

	sql, args, err := b.InsertRows([][]any{row, row})
	require.NoError(t, err)
	assert.Contains(t, sql, `INSERT INTO "members" ("id", "timestamp"`)
	assert.Len(t, args, 2*len(models.MemberColumns))

	_, _, err = b.InsertRows([][]any{{int64(1)}})
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"we""ird"`, Postgres{}.QuoteIdent(`we"ird`))
	assert.Equal(t, `[we]]ird]`, SQLServer{}.QuoteIdent(`we]ird`))
}

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]string{
		"postgres":   "postgres",
		"PostgreSQL": "postgres",
		"sqlite":     "sqlite",
		"mssql":      "sqlserver",
		"sqlserver":  "sqlserver",
	} {
		d, err := DialectFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, d.Name())
	}

	_, err := DialectFor("bigquery")
	assert.Error(t, err)
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("chingu_members"))
	assert.NoError(t, ValidateIdentifier(`odd "name"`))
	assert.ErrorIs(t, ValidateIdentifier(""), ErrInvalidIdentifier)
	assert.ErrorIs(t, ValidateIdentifier("members; DROP TABLE x"), ErrInvalidIdentifier)
	assert.ErrorIs(t, ValidateIdentifier("bad\x00name"), ErrInvalidIdentifier)

	assert.NoError(t, Table{Name: "members"}.Validate())
	assert.Error(t, Table{Schema: " ", Name: "members"}.Validate())
	assert.Equal(t, "public.members", membersTable().String())
}
