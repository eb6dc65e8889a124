package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/export"
	"github.com/boddenberg/donations-ledger-go/internal/infra/observability"
	"github.com/boddenberg/donations-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/donations-ledger-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// ExportService renders record sets into downloadable files. The number of
// exports rendered at once is bounded by a bulkhead.
type ExportService struct {
	store    port.DonationStore
	settings *SettingsService
	archiver port.ExportArchiver // optional
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService creates an export service. archiver may be nil.
func NewExportService(
	store port.DonationStore,
	settings *SettingsService,
	archiver port.ExportArchiver,
	maxConcurrent int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		store:    store,
		settings: settings,
		archiver: archiver,
		bulkhead: resilience.NewBulkhead(maxConcurrent),
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Export serializes every record in window, any status, newest first.
func (s *ExportService) Export(ctx context.Context, format domain.ExportFormat, window domain.ReportWindow) (*domain.ExportFile, error) {
	ctx, span := reportTracer.Start(ctx, "ExportService.Export")
	defer span.End()
	span.SetAttributes(
		attribute.String("export.format", string(format)),
		attribute.String("export.window", window.Key()),
	)

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	now := s.now().UTC()
	records, err := s.store.ListDonations(ctx, window.Filter(now))
	if err != nil {
		return nil, err
	}

	body, err := export.Serialize(records, format, s.settings.FrequencyLabels(ctx))
	if err != nil {
		return nil, err
	}
	s.metrics.IncrExport(format)

	return &domain.ExportFile{
		Filename:    fmt.Sprintf("donations_%s.%s", now.Format(domain.DateLayout), format.Extension()),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// DonorExport serializes one donor's history as CSV. A donor with no
// records is *domain.ErrNotFound.
func (s *ExportService) DonorExport(ctx context.Context, email string) (*domain.ExportFile, error) {
	ctx, span := reportTracer.Start(ctx, "ExportService.DonorExport")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" {
		return nil, &domain.ErrValidation{Field: "donor_email", Message: "required"}
	}

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	records, err := s.store.ListDonations(ctx, domain.DonationFilter{DonorEmail: email})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &domain.ErrNotFound{Resource: "donor", ID: email}
	}

	var buf strings.Builder
	if err := export.WriteDonorHistory(&buf, records, s.settings.FrequencyLabels(ctx)); err != nil {
		return nil, err
	}
	s.metrics.IncrExport(domain.ExportCSV)

	return &domain.ExportFile{
		Filename:    fmt.Sprintf("donor_%s_%s.csv", sanitizeFilename(email), s.now().UTC().Format(domain.DateLayout)),
		ContentType: domain.ExportCSV.ContentType(),
		Body:        []byte(buf.String()),
	}, nil
}

// Archive renders the export and uploads it through the archiver.
func (s *ExportService) Archive(ctx context.Context, format domain.ExportFormat, window domain.ReportWindow) (*domain.ArchiveResponse, error) {
	ctx, span := reportTracer.Start(ctx, "ExportService.Archive")
	defer span.End()

	if s.archiver == nil {
		return nil, &domain.ErrUnavailable{Feature: "export archive"}
	}

	file, err := s.Export(ctx, format, window)
	if err != nil {
		return nil, err
	}

	location, err := s.archiver.Archive(ctx, file.Filename, file.ContentType, file.Body)
	if err != nil {
		s.logger.Error("export archive failed", zap.String("filename", file.Filename), zap.Error(err))
		return nil, err
	}

	s.logger.Info("export archived",
		zap.String("location", location),
		zap.Int("bytes", len(file.Body)),
	)
	return &domain.ArchiveResponse{
		Location: location,
		Filename: file.Filename,
		Bytes:    len(file.Body),
	}, nil
}

func sanitizeFilename(s string) string {
	return strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
