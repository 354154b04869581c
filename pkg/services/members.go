package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
	"github.com/chingu-voyages/member-demographics/pkg/apperrors"
	"github.com/chingu-voyages/member-demographics/pkg/logging"
	"github.com/chingu-voyages/member-demographics/pkg/metrics"
	"github.com/chingu-voyages/member-demographics/pkg/models"
	sqlpkg "github.com/chingu-voyages/member-demographics/pkg/sql"
)

// StatusResponse is returned by the root route.
type StatusResponse struct {
	Status     string    `json:"status"`
	Table      string    `json:"table"`
	Backend    string    `json:"backend"`
	CacheReady bool      `json:"cache_ready"`
	CacheBuilt time.Time `json:"cache_built_at,omitzero"`
}

// MemberService answers read queries over the cleaned members table.
type MemberService interface {
	// Status describes the queried table and cache state.
	Status() *StatusResponse

	// Attributes lists the registered attributes in registry order.
	Attributes() *models.AttributesResponse

	// UniqueValues returns the sorted distinct non-null values of attr.
	UniqueValues(ctx context.Context, attr models.Attribute) (*models.UniqueValuesResponse, error)

	// CountByValue counts rows per value of attr, optionally restricted to a
	// date range of member timestamps.
	CountByValue(ctx context.Context, attr models.Attribute, dates *models.DateRange) (*models.TableResponse, error)

	// FilterMembers returns member rows matching req, ordered by id.
	FilterMembers(ctx context.Context, req *models.FilterRequest, page models.Page) (*models.TableResponse, error)

	// CountryCounts counts rows matching req per country code.
	CountryCounts(ctx context.Context, req *models.FilterRequest) (*models.TableResponse, error)
}

type memberService struct {
	wh       warehouse.Warehouse
	cache    *ValueCache
	compiler *sqlpkg.Compiler
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewMemberService creates a member query service.
func NewMemberService(wh warehouse.Warehouse, cache *ValueCache, m *metrics.Metrics, logger *zap.Logger) MemberService {
	return &memberService{
		wh:       wh,
		cache:    cache,
		compiler: sqlpkg.NewCompiler(wh.Builder().Dialect(), logger),
		metrics:  m,
		logger:   logger.Named("members"),
	}
}

func (s *memberService) Status() *StatusResponse {
	resp := &StatusResponse{
		Status:  "ok",
		Table:   s.wh.Target(),
		Backend: s.wh.Builder().Dialect().Name(),
	}
	if snap := s.cache.Snapshot(); snap != nil {
		resp.CacheReady = true
		resp.CacheBuilt = snap.BuiltAt()
	}
	return resp
}

func (s *memberService) Attributes() *models.AttributesResponse {
	attrs := models.Attributes()
	resp := &models.AttributesResponse{Attributes: make([]models.AttributeInfo, len(attrs))}
	for i, a := range attrs {
		resp.Attributes[i] = models.NewAttributeInfo(a)
	}
	return resp
}

func (s *memberService) UniqueValues(ctx context.Context, attr models.Attribute) (*models.UniqueValuesResponse, error) {
	q, args, err := s.wh.Builder().DistinctValues(attr)
	if err != nil {
		return nil, fmt.Errorf("build distinct query: %w", err)
	}
	res, err := s.query(ctx, "unique_values", q, args)
	if err != nil {
		return nil, err
	}

	values := make([]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		if v, ok := attr.CanonicalValue(row[sqlpkg.ValueColumn]); ok {
			values = append(values, v)
		}
	}
	sortValues(values)

	return &models.UniqueValuesResponse{Attribute: attr.Name(), Values: values}, nil
}

func (s *memberService) CountByValue(ctx context.Context, attr models.Attribute, dates *models.DateRange) (*models.TableResponse, error) {
	if dates != nil && dates.End.Before(dates.Start) {
		return nil, fmt.Errorf("%w: end_date %s is before start_date %s",
			apperrors.ErrInvalidDateRange, dates.EndString(), dates.StartString())
	}

	q, args, err := s.wh.Builder().CountByValue(attr, dates)
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	res, err := s.query(ctx, "count_by_value", q, args)
	if err != nil {
		return nil, err
	}

	column := attr.Column()
	rows := make([]map[string]any, len(res.Rows))
	for i, row := range res.Rows {
		var value any
		if v, ok := attr.CanonicalValue(row[column]); ok {
			value = v
		}
		rows[i] = map[string]any{
			column:             value,
			sqlpkg.CountColumn: countValue(row[sqlpkg.CountColumn]),
		}
	}

	resp := &models.TableResponse{
		RowCount: len(rows),
		ResponseSchema: []models.SchemaField{
			{Name: column, Type: attributeType(attr)},
			{Name: sqlpkg.CountColumn, Type: warehouse.TypeInteger},
		},
		Response: rows,
	}
	if dates != nil {
		days := dates.Days()
		resp.DayCount = &days
	}
	return resp, nil
}

func (s *memberService) FilterMembers(ctx context.Context, req *models.FilterRequest, page models.Page) (*models.TableResponse, error) {
	pred, err := s.compile(req)
	if err != nil {
		return nil, err
	}

	schema := memberSchema()
	if page.Limit == 0 {
		return &models.TableResponse{ResponseSchema: schema, Response: []map[string]any{}}, nil
	}

	q, args, err := s.wh.Builder().FilteredMembers(pred, page)
	if err != nil {
		return nil, fmt.Errorf("build filtered query: %w", err)
	}
	res, err := s.query(ctx, "filter_members", q, args)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, len(res.Rows))
	for i, row := range res.Rows {
		out := make(map[string]any, len(models.MemberColumns))
		for _, col := range models.MemberColumns {
			out[col.Name] = col.OutputValue(row[col.Name])
		}
		rows[i] = out
	}

	return &models.TableResponse{RowCount: len(rows), ResponseSchema: schema, Response: rows}, nil
}

func (s *memberService) CountryCounts(ctx context.Context, req *models.FilterRequest) (*models.TableResponse, error) {
	pred, err := s.compile(req)
	if err != nil {
		return nil, err
	}

	q, args, err := s.wh.Builder().CountryCounts(pred)
	if err != nil {
		return nil, fmt.Errorf("build country count query: %w", err)
	}
	res, err := s.query(ctx, "country_counts", q, args)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, len(res.Rows))
	for i, row := range res.Rows {
		var code any
		if v, ok := models.AttrCountryCode.CanonicalValue(row[models.ColCountryCode]); ok {
			code = v
		}
		rows[i] = map[string]any{
			models.ColCountryCode: code,
			sqlpkg.CountColumn:    countValue(row[sqlpkg.CountColumn]),
		}
	}

	return &models.TableResponse{
		RowCount: len(rows),
		ResponseSchema: []models.SchemaField{
			{Name: models.ColCountryCode, Type: warehouse.TypeString},
			{Name: sqlpkg.CountColumn, Type: warehouse.TypeInteger},
		},
		Response: rows,
	}, nil
}

// compile validates req against the current cache snapshot.
func (s *memberService) compile(req *models.FilterRequest) (*sqlpkg.Predicate, error) {
	snap := s.cache.Snapshot()
	if snap == nil {
		s.metrics.RecordFilterRejection("cache_unavailable")
		return nil, apperrors.ErrCacheUnavailable
	}

	pred, err := s.compiler.Compile(req, snap)
	if err != nil {
		s.metrics.RecordFilterRejection(rejectionReason(err))
		s.logger.Debug("Rejected filter request", zap.Error(err))
		return nil, err
	}
	return pred, nil
}

// query runs one warehouse statement. Failures are wrapped as ErrWarehouse
// and are not retried.
func (s *memberService) query(ctx context.Context, op, q string, args []any) (*warehouse.QueryResult, error) {
	start := time.Now()
	res, err := s.wh.Query(ctx, q, args)
	s.metrics.ObserveWarehouse(op, err, time.Since(start))
	if err != nil {
		s.logger.Error("Warehouse query failed",
			zap.String("operation", op),
			zap.String("query", logging.SanitizeQuery(q)),
			zap.Int("param_count", len(args)),
			zap.Strings("params", logging.SanitizeParams(args)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrWarehouse, op, err)
	}
	return res, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnknownAttribute):
		return "unknown_attribute"
	case errors.Is(err, apperrors.ErrConflictingFilter):
		return "conflicting_filter"
	case errors.Is(err, apperrors.ErrEmptyFilterValues):
		return "empty_values"
	case errors.Is(err, apperrors.ErrFilterValueType):
		return "value_type"
	case errors.Is(err, apperrors.ErrInvalidFilterValue):
		return "illegal_value"
	case errors.Is(err, apperrors.ErrCacheUnavailable):
		return "cache_unavailable"
	}
	return "invalid_filter"
}

var countColumn = models.Column{Name: sqlpkg.CountColumn, Type: models.ColumnInteger}

func countValue(v any) any {
	return countColumn.OutputValue(v)
}

func attributeType(a models.Attribute) string {
	if a.ValueType() == models.IntegerValue {
		return warehouse.TypeInteger
	}
	return warehouse.TypeString
}

func memberSchema() []models.SchemaField {
	schema := make([]models.SchemaField, len(models.MemberColumns))
	for i, c := range models.MemberColumns {
		schema[i] = models.SchemaField{Name: c.Name, Type: columnType(c.Type)}
	}
	return schema
}

func columnType(t models.ColumnType) string {
	switch t {
	case models.ColumnInteger:
		return warehouse.TypeInteger
	case models.ColumnText:
		return warehouse.TypeString
	case models.ColumnTimestamp:
		return warehouse.TypeTimestamp
	case models.ColumnIntegerList:
		return warehouse.TypeIntegerArray
	case models.ColumnTextList:
		return warehouse.TypeStringArray
	}
	return warehouse.TypeUnknown
}
