package services

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
	"github.com/chingu-voyages/member-demographics/pkg/apperrors"
	"github.com/chingu-voyages/member-demographics/pkg/logging"
	"github.com/chingu-voyages/member-demographics/pkg/metrics"
	"github.com/chingu-voyages/member-demographics/pkg/models"
	sqlpkg "github.com/chingu-voyages/member-demographics/pkg/sql"
)

// warmConcurrency bounds the distinct-value queries issued while warming.
const warmConcurrency = 4

// ValueSnapshot is an immutable set of legal values per attribute.
type ValueSnapshot struct {
	values  map[models.Attribute][]any
	index   map[models.Attribute]map[any]struct{}
	builtAt time.Time
}

// NewValueSnapshot builds a snapshot from canonical values. Values are
// deduplicated and sorted.
func NewValueSnapshot(values map[models.Attribute][]any, builtAt time.Time) *ValueSnapshot {
	s := &ValueSnapshot{
		values:  make(map[models.Attribute][]any, len(values)),
		index:   make(map[models.Attribute]map[any]struct{}, len(values)),
		builtAt: builtAt,
	}
	for attr, vals := range values {
		set := make(map[any]struct{}, len(vals))
		list := make([]any, 0, len(vals))
		for _, v := range vals {
			if _, dup := set[v]; dup {
				continue
			}
			set[v] = struct{}{}
			list = append(list, v)
		}
		sortValues(list)
		s.values[attr] = list
		s.index[attr] = set
	}
	return s
}

// Contains reports whether value is a legal value of attr.
func (s *ValueSnapshot) Contains(attr models.Attribute, value any) bool {
	_, ok := s.index[attr][value]
	return ok
}

// Values returns the sorted legal values of attr.
func (s *ValueSnapshot) Values(attr models.Attribute) []any {
	return s.values[attr]
}

// BuiltAt is when the snapshot finished building.
func (s *ValueSnapshot) BuiltAt() time.Time {
	return s.builtAt
}

// Counts returns the number of legal values per attribute name.
func (s *ValueSnapshot) Counts() map[string]int {
	out := make(map[string]int, len(s.values))
	for attr, vals := range s.values {
		out[attr.Name()] = len(vals)
	}
	return out
}

// ValueCache holds the process-wide legal-value snapshot. It starts
// uninitialized; Warm publishes a complete snapshot atomically and a failed
// Warm keeps the previous one.
type ValueCache struct {
	wh       warehouse.Warehouse
	snapshot atomic.Pointer[ValueSnapshot]
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewValueCache creates an uninitialized cache over wh.
func NewValueCache(wh warehouse.Warehouse, m *metrics.Metrics, logger *zap.Logger) *ValueCache {
	return &ValueCache{
		wh:      wh,
		metrics: m,
		logger:  logger.Named("value-cache"),
		now:     time.Now,
	}
}

// Snapshot returns the current snapshot, or nil while uninitialized.
func (c *ValueCache) Snapshot() *ValueSnapshot {
	return c.snapshot.Load()
}

// Ready reports whether a snapshot has been published.
func (c *ValueCache) Ready() bool {
	return c.snapshot.Load() != nil
}

// Publish replaces the snapshot. Used by Warm and by tests.
func (c *ValueCache) Publish(s *ValueSnapshot) {
	c.snapshot.Store(s)
	c.metrics.SetCacheSnapshot(s.Counts())
}

// Warm queries the distinct values of every registered attribute concurrently
// and publishes the result only when all queries succeed.
func (c *ValueCache) Warm(ctx context.Context) error {
	start := c.now()
	attrs := models.Attributes()
	results := make([][]any, len(attrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for i, attr := range attrs {
		g.Go(func() error {
			vals, err := c.distinct(gctx, attr)
			if err != nil {
				return fmt.Errorf("%s: %w", attr.Name(), err)
			}
			results[i] = vals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Error("Failed to warm unique-value cache",
			zap.String("error", logging.SanitizeError(err)),
			zap.Bool("keeping_previous", c.Ready()))
		return fmt.Errorf("%w: warm unique-value cache: %v", apperrors.ErrWarehouse, err)
	}

	values := make(map[models.Attribute][]any, len(attrs))
	for i, attr := range attrs {
		values[attr] = results[i]
	}
	snap := NewValueSnapshot(values, c.now().UTC())
	c.Publish(snap)

	c.logger.Info("Unique-value cache warmed",
		zap.Int("attributes", len(attrs)),
		zap.Duration("duration", c.now().Sub(start)))
	return nil
}

func (c *ValueCache) distinct(ctx context.Context, attr models.Attribute) ([]any, error) {
	query, args, err := c.wh.Builder().DistinctValues(attr)
	if err != nil {
		return nil, fmt.Errorf("build distinct query: %w", err)
	}

	start := time.Now()
	res, err := c.wh.Query(ctx, query, args)
	c.metrics.ObserveWarehouse("distinct_values", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	vals := make([]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		if v, ok := attr.CanonicalValue(row[sqlpkg.ValueColumn]); ok {
			vals = append(vals, v)
		}
	}
	return vals, nil
}

// sortValues orders canonical values: integers numerically, strings
// lexically, integers before strings.
func sortValues(vals []any) {
	sort.SliceStable(vals, func(i, j int) bool {
		a, aInt := vals[i].(int64)
		b, bInt := vals[j].(int64)
		switch {
		case aInt && bInt:
			return a < b
		case aInt != bInt:
			return aInt
		}
		as, _ := vals[i].(string)
		bs, _ := vals[j].(string)
		return as < bs
	})
}
