package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/chingu-voyages/member-demographics/pkg/apperrors"
	"github.com/chingu-voyages/member-demographics/pkg/models"
)

// maxFilterBody bounds the size of a filter request body.
const maxFilterBody = 1 << 20

// ParseAttribute resolves the {attribute} path parameter. Unknown names
// are reported as not found.
func ParseAttribute(r *http.Request) (models.Attribute, error) {
	name := r.PathValue("attribute")
	attr, ok := models.LookupAttribute(name)
	if !ok {
		return 0, fmt.Errorf("%w: attribute %q", apperrors.ErrNotFound, name)
	}
	return attr, nil
}

// ParseDateRange reads start_date and end_date. Both absent yields nil.
func ParseDateRange(r *http.Request) (*models.DateRange, error) {
	q := r.URL.Query()
	return models.ParseDateRange(q.Get("start_date"), q.Get("end_date"))
}

// ParsePage reads the offset and limit query parameters.
func ParsePage(r *http.Request) (models.Page, error) {
	page := models.DefaultPage()
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 63)
		if err != nil {
			return page, fmt.Errorf("%w: limit %q is not a non-negative integer", apperrors.ErrInvalidPagination, raw)
		}
		page.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.ParseUint(raw, 10, 63)
		if err != nil {
			return page, fmt.Errorf("%w: offset %q is not a non-negative integer", apperrors.ErrInvalidPagination, raw)
		}
		page.Offset = &offset
	}
	return page, nil
}

// DecodeFilterRequest reads and decodes an include/exclude body. An empty
// body is an empty filter.
func DecodeFilterRequest(r *http.Request) (*models.FilterRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFilterBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperrors.ErrInvalidFilter, err)
	}
	if len(body) > maxFilterBody {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", apperrors.ErrInvalidFilter, maxFilterBody)
	}
	return models.DecodeFilterRequest(body)
}
