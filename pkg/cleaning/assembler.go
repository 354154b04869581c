// Package cleaning turns raw survey exports into rows of the cleaned members table.
package cleaning

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chingu-voyages/member-demographics/pkg/country"
	"github.com/chingu-voyages/member-demographics/pkg/models"
	"github.com/chingu-voyages/member-demographics/pkg/normalize"
)

// Issue labels used in the cleaning report.
const (
	IssueUnparsedTimestamp    = "unparsed_timestamp"
	IssueUnparsedTimezone     = "unparsed_timezone"
	IssueWrappedOffset        = "wrapped_offset"
	IssueCountryCodeReplaced  = "country_code_replaced"
	IssueCountryCodeExtracted = "country_code_extracted"
	IssueCountryCodeNulled    = "country_code_nulled"
	IssueCountryUnresolved    = "country_code_unresolved"
	IssueCountryNameMismatch  = "country_name_mismatch"
	IssueVoyageListMismatch   = "voyage_list_length_mismatch"
)

// chunkSize is the number of rows a worker normalizes per task.
const chunkSize = 256

// Assembler applies every field normalizer to every row.
type Assembler struct {
	countries *country.Reconciler
	workers   int
}

// NewAssembler creates an Assembler. workers <= 0 means GOMAXPROCS.
func NewAssembler(countries *country.Reconciler, workers int) *Assembler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Assembler{countries: countries, workers: workers}
}

type rowResult struct {
	member models.Member
	issues []models.RowIssue
}

// Assemble cleans raw rows into members. Row i of the input becomes the
// member with id i+1. Rows are normalized concurrently but the output and
// the report are identical to a serial run.
func (a *Assembler) Assemble(ctx context.Context, raws []models.RawMember) ([]models.Member, *models.CleaningReport, error) {
	results := make([]rowResult, len(raws))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for start := 0; start < len(raws); start += chunkSize {
		end := min(start+chunkSize, len(raws))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// each task owns results[start:end]
			for i := start; i < end; i++ {
				results[i] = a.assembleRow(int64(i+1), &raws[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	members := make([]models.Member, len(results))
	report := &models.CleaningReport{Rows: len(results)}
	for i := range results {
		members[i] = results[i].member
		for _, issue := range results[i].issues {
			report.Issues = append(report.Issues, issue)
			tally(report, issue.Issue)
		}
	}
	return members, report, nil
}

func tally(r *models.CleaningReport, issue string) {
	switch issue {
	case IssueUnparsedTimestamp:
		r.NullTimestamps++
	case IssueUnparsedTimezone:
		r.UnparsedTimezones++
	case IssueWrappedOffset:
		r.WrappedOffsets++
	case IssueCountryCodeReplaced, IssueCountryCodeExtracted:
		r.CountryCodeCorrections++
	case IssueCountryCodeNulled:
		r.CountryCodesNulled++
	case IssueCountryUnresolved:
		r.UnresolvedCountryCodes++
	case IssueCountryNameMismatch:
		r.CountryNameMismatches++
	case IssueVoyageListMismatch:
		r.VoyageListMismatches++
	}
}

func (a *Assembler) assembleRow(id int64, raw *models.RawMember) rowResult {
	var issues []models.RowIssue
	flag := func(column, issue string, rawValue *string) {
		ri := models.RowIssue{ID: id, Column: column, Issue: issue}
		if rawValue != nil {
			ri.Raw = *rawValue
		}
		issues = append(issues, ri)
	}

	m := models.Member{
		ID:              id,
		Gender:          normalize.Text(raw.Gender),
		Goal:            normalize.Text(raw.Goal),
		GoalOther:       normalize.Text(raw.GoalOther),
		Source:          normalize.Text(raw.Source),
		SourceOther:     normalize.Text(raw.SourceOther),
		Role:            normalize.Role(raw.RoleType, raw.VoyageRole),
		SoloProjectTier: normalize.Tier(raw.SoloProjectTier),
		VoyageSignupIDs: normalize.SignupIDs(raw.VoyageSignups),
		VoyageTiers:     normalize.TierList(raw.VoyageTier),
	}

	m.Timestamp = normalize.Timestamp(raw.Timestamp)
	if m.Timestamp == nil && normalize.Text(raw.Timestamp) != nil {
		flag(models.ColTimestamp, IssueUnparsedTimestamp, raw.Timestamp)
	}

	offset := normalize.UTCOffset(raw.Timezone)
	m.Timezone = offset.Canonical
	m.GMTOffset = normalize.ParseCanonicalOffset(offset.Canonical)
	switch {
	case offset.Canonical == nil && normalize.Text(raw.Timezone) != nil:
		flag(models.ColTimezone, IssueUnparsedTimezone, raw.Timezone)
	case offset.Wrapped:
		flag(models.ColTimezone, IssueWrappedOffset, raw.Timezone)
	}

	c := a.countries.Reconcile(raw.CountryCode, raw.CountryName)
	m.CountryCode, m.CountryName = c.Code, c.Name
	switch c.Correction {
	case country.Replaced:
		flag(models.ColCountryCode, IssueCountryCodeReplaced, raw.CountryCode)
	case country.Extracted:
		flag(models.ColCountryCode, IssueCountryCodeExtracted, raw.CountryCode)
	case country.Nulled:
		flag(models.ColCountryCode, IssueCountryCodeNulled, raw.CountryCode)
	}
	if c.Unresolved {
		flag(models.ColCountryCode, IssueCountryUnresolved, raw.CountryCode)
	}
	if c.NameMismatch {
		flag(models.ColCountryName, IssueCountryNameMismatch, raw.CountryName)
	}

	// Signups and tiers are meant to line up position by position but the
	// export does not guarantee it; keep both lists and flag the row.
	if len(m.VoyageSignupIDs) != len(m.VoyageTiers) {
		flag(models.ColVoyageSignupIDs, IssueVoyageListMismatch, raw.VoyageSignups)
	}

	return rowResult{member: m, issues: issues}
}
