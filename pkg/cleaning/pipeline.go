package cleaning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/logging"
	"github.com/chingu-voyages/member-demographics/pkg/metrics"
	"github.com/chingu-voyages/member-demographics/pkg/models"
	"github.com/chingu-voyages/member-demographics/pkg/retry"
)

// Loader replaces the cleaned members table with a new snapshot.
type Loader interface {
	ReplaceMembers(ctx context.Context, members []models.Member) (int64, error)
	Target() string
}

// RunRecorder persists pipeline run metadata next to the snapshot.
// Loaders that support it are detected with a type assertion.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.PipelineRun) error
}

// ErrNoLoader is returned when a load is requested without a configured warehouse.
var ErrNoLoader = errors.New("cleaning: load requested but no warehouse loader configured")

// RunInput describes one pipeline execution.
type RunInput struct {
	// Source names the input for logs and the run record.
	Source string
	Raw    io.Reader
	// Export receives the NDJSON snapshot; nil skips the export.
	Export io.Writer
	// Load replaces the warehouse table with the cleaned rows.
	Load bool
}

// Pipeline runs read → assemble → export → load.
type Pipeline struct {
	assembler *Assembler
	loader    Loader
	retryCfg  *retry.Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewPipeline creates a Pipeline. loader may be nil when only exporting.
func NewPipeline(assembler *Assembler, loader Loader, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		assembler: assembler,
		loader:    loader,
		retryCfg:  retry.DefaultConfig(),
		metrics:   m,
		logger:    logger.Named("cleaning"),
		now:       time.Now,
	}
}

// Run executes the pipeline once and returns the run record.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (*models.PipelineRun, error) {
	if in.Load && p.loader == nil {
		return nil, ErrNoLoader
	}

	run := &models.PipelineRun{
		ID:        uuid.New(),
		StartedAt: p.now().UTC(),
		Source:    in.Source,
	}
	logger := p.logger.With(zap.String("run_id", run.ID.String()), zap.String("source", in.Source))

	var raws []models.RawMember
	err := p.step("read", func() error {
		var err error
		raws, err = ReadRaw(in.Raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	run.InputRows = len(raws)
	p.metrics.RecordCleaning("processed", len(raws))

	var members []models.Member
	err = p.step("assemble", func() error {
		var err error
		members, run.Report, err = p.assembler.Assemble(ctx, raws)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("assemble members: %w", err)
	}
	p.recordReport(logger, run.Report)

	// The snapshot is always encoded so its checksum lands in the run record,
	// even when no export file was requested.
	hasher := xxh3.New()
	out := io.Writer(hasher)
	if in.Export != nil {
		out = io.MultiWriter(in.Export, hasher)
	}
	if err := p.step("export", func() error { return WriteNDJSON(out, members) }); err != nil {
		return nil, fmt.Errorf("export members: %w", err)
	}
	run.SnapshotChecksum = fmt.Sprintf("%016x", hasher.Sum64())

	if in.Load {
		run.Target = p.loader.Target()
		err := p.step("load", func() error {
			return retry.DoIfRetryable(ctx, p.retryCfg, func() error {
				n, err := p.loader.ReplaceMembers(ctx, members)
				run.LoadedRows = n
				return err
			})
		})
		if err != nil {
			logger.Error("Failed to load members snapshot",
				zap.String("target", run.Target),
				zap.String("error", logging.SanitizeError(err)))
			return nil, fmt.Errorf("load members: %w", err)
		}
		p.metrics.RecordCleaning("loaded", int(run.LoadedRows))
	}

	run.FinishedAt = p.now().UTC()

	if recorder, ok := p.loader.(RunRecorder); ok && in.Load {
		if err := recorder.RecordRun(ctx, run); err != nil {
			logger.Warn("Failed to record pipeline run", zap.String("error", logging.SanitizeError(err)))
		}
	}

	logger.Info("Cleaning run finished",
		zap.Int("input_rows", run.InputRows),
		zap.Int64("loaded_rows", run.LoadedRows),
		zap.String("snapshot_checksum", run.SnapshotChecksum),
		zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)))
	return run, nil
}

func (p *Pipeline) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.ObserveStep(name, err, time.Since(start))
	return err
}

func (p *Pipeline) recordReport(logger *zap.Logger, r *models.CleaningReport) {
	p.metrics.RecordCleaning("null_timestamp", r.NullTimestamps)
	p.metrics.RecordCleaning("unparsed_timezone", r.UnparsedTimezones)
	p.metrics.RecordCleaning("wrapped_offset", r.WrappedOffsets)
	p.metrics.RecordCleaning("country_code_corrected", r.CountryCodeCorrections)
	p.metrics.RecordCleaning("country_code_nulled", r.CountryCodesNulled)
	p.metrics.RecordCleaning("country_code_unresolved", r.UnresolvedCountryCodes)
	p.metrics.RecordCleaning("country_name_mismatch", r.CountryNameMismatches)
	p.metrics.RecordCleaning("voyage_list_mismatch", r.VoyageListMismatches)

	for _, issue := range r.Issues {
		logger.Debug("Row needed correction",
			zap.Int64("id", issue.ID),
			zap.String("column", issue.Column),
			zap.String("issue", issue.Issue),
			zap.String("raw", logging.TruncateString(issue.Raw, 80)))
	}

	fields := []zap.Field{
		zap.Int("rows", r.Rows),
		zap.Int("null_timestamps", r.NullTimestamps),
		zap.Int("unparsed_timezones", r.UnparsedTimezones),
		zap.Int("wrapped_offsets", r.WrappedOffsets),
		zap.Int("country_code_corrections", r.CountryCodeCorrections),
		zap.Int("country_codes_nulled", r.CountryCodesNulled),
		zap.Int("unresolved_country_codes", r.UnresolvedCountryCodes),
		zap.Int("country_name_mismatches", r.CountryNameMismatches),
		zap.Int("voyage_list_mismatches", r.VoyageListMismatches),
	}
	if r.CountryNameMismatches > 0 || r.VoyageListMismatches > 0 {
		logger.Warn("Cleaned rows disagree with their raw values", fields...)
		return
	}
	logger.Info("Cleaned rows", fields...)
}
