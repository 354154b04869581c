package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownAttribute   = errors.New("unknown attribute")
	ErrConflictingFilter  = errors.New("attribute present in both include and exclude")
	ErrInvalidFilter      = errors.New("invalid filter")
	ErrEmptyFilterValues  = errors.New("filter value list is empty")
	ErrFilterValueType    = errors.New("filter value has the wrong type for its attribute")
	ErrInvalidFilterValue = errors.New("filter value is not a known value of its attribute")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrInvalidPagination  = errors.New("invalid pagination")
	ErrCacheUnavailable   = errors.New("unique-value cache is not initialized")
	ErrWarehouse          = errors.New("warehouse query failed")
)

// IsClientError reports whether err was caused by invalid caller input.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrUnknownAttribute,
		ErrConflictingFilter,
		ErrInvalidFilter,
		ErrEmptyFilterValues,
		ErrFilterValueType,
		ErrInvalidFilterValue,
		ErrInvalidDateRange,
		ErrInvalidPagination,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Code returns a stable snake_case code for err, used in error responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnknownAttribute):
		return "unknown_attribute"
	case errors.Is(err, ErrConflictingFilter):
		return "conflicting_filter"
	case errors.Is(err, ErrEmptyFilterValues):
		return "empty_filter_values"
	case errors.Is(err, ErrFilterValueType):
		return "filter_value_type"
	case errors.Is(err, ErrInvalidFilterValue):
		return "invalid_filter_value"
	case errors.Is(err, ErrInvalidFilter):
		return "invalid_filter"
	case errors.Is(err, ErrInvalidDateRange):
		return "invalid_date_range"
	case errors.Is(err, ErrInvalidPagination):
		return "invalid_pagination"
	case errors.Is(err, ErrCacheUnavailable):
		return "cache_unavailable"
	case errors.Is(err, ErrWarehouse):
		return "warehouse_error"
	}
	return "internal_error"
}
