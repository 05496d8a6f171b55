package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	"github.com/LucasMargets11/morrisonv2/internal/keys"
	"github.com/LucasMargets11/morrisonv2/internal/repository/objectstore"
)

// DefaultRetriggerContentType is written on a touch when the original has no content type.
const DefaultRetriggerContentType = "image/jpeg"

// ImageCatalog is the catalog store holding image records.
type ImageCatalog interface {
	// ListImages returns matching records ordered by id.
	ListImages(ctx context.Context, filter domain.ImageFilter) ([]domain.ImageRecord, error)
	UpdateImageKey(ctx context.Context, record domain.ImageRecord) error
	BulkInsertImages(ctx context.Context, records []domain.ImageRecord) (int64, error)
}

// BackfillOptions drive one reconciliation sweep.
type BackfillOptions struct {
	Commit                  bool
	DryRun                  bool
	Limit                   int
	OnlyMissing             bool
	IncludeOriginal         bool
	OnlyOriginal            bool
	RetriggerMissingDerived bool
	Sizes                   []int
	PropertyID              *int64
	Quiet                   bool
}

// Simulate reports whether the sweep must not write. Writing needs Commit, and an
// explicit DryRun wins over it.
func (o BackfillOptions) Simulate() bool {
	return !o.Commit || o.DryRun
}

// RecordResult is the outcome of one record.
type RecordResult struct {
	RecordID       int64          `json:"record_id"`
	Outcome        domain.Outcome `json:"outcome"`
	Key            string         `json:"key,omitempty"`
	DestinationKey string         `json:"destination_key,omitempty"`
	MissingSizes   []int          `json:"missing_sizes,omitempty"`
	CopySkipped    bool           `json:"copy_skipped,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// BackfillReport is returned after a full sweep.
type BackfillReport struct {
	RunID    string                 `json:"run_id"`
	Simulate bool                   `json:"simulate"`
	Summary  domain.BackfillSummary `json:"summary"`
	Results  []RecordResult         `json:"results"`
}

// BackfillService reconciles catalog records with the original/derived key layout:
// legacy keys are migrated under the original prefix, and originals missing
// derivatives are touched so the generator runs again.
type BackfillService struct {
	store    objectstore.ObjectRepository
	catalog  ImageCatalog
	layout   keys.Layout
	progress io.Writer
}

// NewBackfillService creates a BackfillService over one bucket and its catalog.
func NewBackfillService(store objectstore.ObjectRepository, catalog ImageCatalog, layout keys.Layout) *BackfillService {
	return &BackfillService{
		store:    store,
		catalog:  catalog,
		layout:   layout,
		progress: os.Stderr,
	}
}

// Run performs one sequential sweep. Invalid options and catalog listing failures
// abort before any record is touched; per-record failures are counted and the sweep
// carries on.
func (s *BackfillService) Run(ctx context.Context, opts BackfillOptions) (BackfillReport, error) {
	sizes, err := keys.ValidateSizes(opts.Sizes)
	if err != nil {
		return BackfillReport{}, err
	}
	opts.Sizes = sizes

	report := BackfillReport{
		RunID:    uuid.NewString(),
		Simulate: opts.Simulate(),
	}
	logger := log.WithField("run_id", report.RunID)

	records, err := s.catalog.ListImages(ctx, domain.ImageFilter{PropertyID: opts.PropertyID})
	if err != nil {
		return report, fmt.Errorf("failed to list image records: %w", err)
	}
	records = s.selectRecords(records, opts)

	logger.WithFields(log.Fields{
		"records":          len(records),
		"simulate":         report.Simulate,
		"sizes":            opts.Sizes,
		"retrigger":        opts.RetriggerMissingDerived,
		"include_original": opts.IncludeOriginal,
		"only_original":    opts.OnlyOriginal,
	}).Info("Starting backfill")

	var bar *progressbar.ProgressBar
	if !opts.Quiet {
		bar = progressbar.NewOptions(len(records),
			progressbar.OptionSetWriter(s.progress),
			progressbar.OptionSetDescription("backfill"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	report.Results = make([]RecordResult, 0, len(records))
	for _, record := range records {
		result := s.processRecord(ctx, logger.WithField("record_id", record.ID), record, opts)
		report.Results = append(report.Results, result)
		report.Summary.Record(result.Outcome)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	logger.WithFields(log.Fields{
		"processed":   report.Summary.Processed,
		"success":     report.Summary.Success,
		"retriggered": report.Summary.Retriggered,
		"already_ok":  report.Summary.AlreadyOK,
		"skipped":     report.Summary.Skipped,
		"errors":      report.Summary.Errors,
		"planned":     report.Summary.Planned,
	}).Info("Backfill finished")

	return report, nil
}

// selectRecords narrows the listing: originals are dropped unless one of the
// original-aware modes is on, OnlyOriginal keeps nothing else, and Limit applies last.
func (s *BackfillService) selectRecords(records []domain.ImageRecord, opts BackfillOptions) []domain.ImageRecord {
	selected := make([]domain.ImageRecord, 0, len(records))
	for _, record := range records {
		original := s.layout.IsOriginalKey(record.StorageKey)
		if !opts.IncludeOriginal && !opts.OnlyOriginal && !opts.RetriggerMissingDerived && original {
			continue
		}
		if opts.OnlyOriginal && !original {
			continue
		}
		selected = append(selected, record)
	}

	if opts.Limit > 0 && len(selected) > opts.Limit {
		selected = selected[:opts.Limit]
	}
	return selected
}

func (s *BackfillService) processRecord(ctx context.Context, logger *log.Entry, record domain.ImageRecord, opts BackfillOptions) RecordResult {
	key, ok := s.layout.ExtractStorageKey(record)
	if !ok {
		logger.Warn("Record has no storage key or parseable URL, skipping")
		return RecordResult{RecordID: record.ID, Outcome: domain.OutcomeSkipped}
	}
	logger = logger.WithField("key", key)

	if s.layout.IsOriginalKey(key) {
		if opts.RetriggerMissingDerived {
			return s.retrigger(ctx, logger, record, key, opts)
		}
		logger.Info("Already in the original layout and no retrigger requested, skipping")
		return RecordResult{RecordID: record.ID, Outcome: domain.OutcomeSkipped, Key: key}
	}

	return s.migrate(ctx, logger, record, key, opts)
}

// retrigger checks the derivative set of an original and, when any derivative is
// missing, copies the original onto itself with replaced metadata. The rewrite emits a
// fresh creation notification and the generator fills in what is missing.
func (s *BackfillService) retrigger(ctx context.Context, logger *log.Entry, record domain.ImageRecord, key string, opts BackfillOptions) RecordResult {
	result := RecordResult{RecordID: record.ID, Key: key}

	derivatives, err := s.layout.DerivativeSet(key, opts.Sizes)
	if err != nil {
		return s.failed(logger, result, err)
	}

	for _, d := range derivatives {
		_, existence, err := s.store.Head(ctx, d.Key)
		switch existence {
		case domain.Exists:
		case domain.NotFound:
			result.MissingSizes = append(result.MissingSizes, d.Size)
		default:
			return s.failed(logger, result, fmt.Errorf("failed to check derivative %s: %w", d.Key, err))
		}
	}

	if len(result.MissingSizes) == 0 {
		logger.WithField("sizes", opts.Sizes).Info("All derivatives present")
		result.Outcome = domain.OutcomeAlreadyOK
		return result
	}

	logger = logger.WithField("missing_sizes", result.MissingSizes)
	if opts.Simulate() {
		logger.Info("[DRY-RUN] Would copy the original onto itself to retrigger derivative generation")
		result.Outcome = domain.OutcomePlannedRetrigger
		return result
	}

	info, existence, err := s.store.Head(ctx, key)
	switch existence {
	case domain.Exists:
	case domain.NotFound:
		return s.failed(logger, result, fmt.Errorf("original %s: %w", key, errOriginalMissing))
	default:
		return s.failed(logger, result, fmt.Errorf("failed to read original attributes: %w", err))
	}

	copyOpts := objectstore.CopyOptions{
		Directive:    objectstore.MetadataReplace,
		ContentType:  info.ContentType,
		CacheControl: info.CacheControl,
		Metadata:     info.Metadata,
	}
	if copyOpts.ContentType == "" {
		copyOpts.ContentType = DefaultRetriggerContentType
	}
	if copyOpts.CacheControl == "" {
		copyOpts.CacheControl = ImmutableCacheControl
	}

	if err := s.store.Copy(ctx, key, key, copyOpts); err != nil {
		return s.failed(logger, result, err)
	}

	logger.Info("Retriggered derivative generation")
	result.Outcome = domain.OutcomeRetriggered
	return result
}

// migrate moves a legacy object under the original prefix and repoints the record.
// With OnlyMissing an existing destination is reused, but the record is still updated.
func (s *BackfillService) migrate(ctx context.Context, logger *log.Entry, record domain.ImageRecord, key string, opts BackfillOptions) RecordResult {
	destination := s.layout.MigrationKey(record, key)
	result := RecordResult{RecordID: record.ID, Key: key, DestinationKey: destination}
	logger = logger.WithField("destination", destination)

	if opts.Simulate() {
		logger.Info("[DRY-RUN] Would copy the object and update the record")
		result.Outcome = domain.OutcomePlannedMigration
		return result
	}

	if opts.OnlyMissing {
		_, existence, err := s.store.Head(ctx, destination)
		switch existence {
		case domain.Exists:
			logger.Info("Destination already exists, skipping copy")
			result.CopySkipped = true
		case domain.NotFound:
		default:
			return s.failed(logger, result, fmt.Errorf("failed to check destination: %w", err))
		}
	}

	if !result.CopySkipped {
		if err := s.store.Copy(ctx, key, destination, objectstore.CopyOptions{Directive: objectstore.MetadataPreserve}); err != nil {
			return s.failed(logger, result, err)
		}
	}

	updated := record
	updated.StorageKey = destination
	if url, replaced := keys.ReplaceKeyInURL(record.PublicURL, key, destination); replaced {
		updated.PublicURL = url
	}
	if err := s.catalog.UpdateImageKey(ctx, updated); err != nil {
		return s.failed(logger, result, fmt.Errorf("failed to update record: %w", err))
	}

	logger.Info("Migrated")
	result.Outcome = domain.OutcomeMigrated
	return result
}

var errOriginalMissing = errors.New("original object does not exist")

func (s *BackfillService) failed(logger *log.Entry, result RecordResult, err error) RecordResult {
	logger.WithError(err).Error("Failed to process record")
	result.Outcome = domain.OutcomeErrored
	result.Error = err.Error()
	return result
}
