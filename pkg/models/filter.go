package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chingu-voyages/member-demographics/pkg/apperrors"
)

// DefaultWindowLimit is the row limit applied when a filtered request omits one.
const DefaultWindowLimit uint64 = 200

// DateLayout is the accepted format of start and end dates.
const DateLayout = "2006-01-02"

// FilterRequest is the include/exclude body accepted by the filtered endpoints.
// Keys are attribute names; values are JSON strings or integers depending on
// the attribute's declared type.
type FilterRequest struct {
	Include map[string][]any `json:"include"`
	Exclude map[string][]any `json:"exclude"`
}

// DecodeFilterRequest decodes an include/exclude JSON object. Numbers are
// kept as json.Number so integer values are not widened to float64. Blank
// input is an empty filter.
func DecodeFilterRequest(data []byte) (*FilterRequest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &FilterRequest{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var req FilterRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", apperrors.ErrInvalidFilter, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: body must contain a single JSON object", apperrors.ErrInvalidFilter)
	}
	return &req, nil
}

// Page bounds a filtered result window. Offset is nil when not requested.
type Page struct {
	Limit  uint64
	Offset *uint64
}

// DefaultPage returns the window used when no pagination is supplied.
func DefaultPage() Page {
	return Page{Limit: DefaultWindowLimit}
}

// DateRange is an inclusive range of calendar days (UTC).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses a pair of YYYY-MM-DD dates. Both empty yields nil;
// exactly one given, an unparseable date, or end before start is an
// ErrInvalidDateRange.
func ParseDateRange(start, end string) (*DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, fmt.Errorf("%w: start_date and end_date must be given together", apperrors.ErrInvalidDateRange)
	}

	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date %q is not YYYY-MM-DD", apperrors.ErrInvalidDateRange, start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("%w: end_date %q is not YYYY-MM-DD", apperrors.ErrInvalidDateRange, end)
	}
	if e.Before(s) {
		return nil, fmt.Errorf("%w: end_date %s is before start_date %s", apperrors.ErrInvalidDateRange, end, start)
	}
	return &DateRange{Start: s, End: e}, nil
}

// Days counts the days in the range, both ends included.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// StartString returns the start day as YYYY-MM-DD.
func (r DateRange) StartString() string {
	return r.Start.Format(DateLayout)
}

// EndString returns the end day as YYYY-MM-DD.
func (r DateRange) EndString() string {
	return r.End.Format(DateLayout)
}
