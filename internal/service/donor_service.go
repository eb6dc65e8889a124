package service

import (
	"context"
	"strings"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultDonorsPerPage = 20
	maxDonorsPerPage     = 100
)

// DonorService derives donor profiles from completed records. Profiles are
// recomputed on every call.
type DonorService struct {
	store    port.DonationStore
	settings *SettingsService
	logger   *zap.Logger
}

// NewDonorService creates a donor service.
func NewDonorService(store port.DonationStore, settings *SettingsService, logger *zap.Logger) *DonorService {
	return &DonorService{store: store, settings: settings, logger: logger}
}

// ListDonors returns one page of donor profiles. Unknown sort columns fall
// back to total_donated and unknown directions to desc. Pages past the end
// are empty.
func (s *DonorService) ListDonors(ctx context.Context, q domain.DonorQuery) (*domain.DonorPage, error) {
	ctx, span := ledgerTracer.Start(ctx, "DonorService.ListDonors")
	defer span.End()

	q.SortBy = domain.ParseDonorSortColumn(string(q.SortBy))
	q.Direction = domain.ParseSortDirection(string(q.Direction))
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = s.defaultPageSize(ctx)
	}
	if q.PageSize > maxDonorsPerPage {
		q.PageSize = maxDonorsPerPage
	}
	span.SetAttributes(
		attribute.String("donors.sort_by", string(q.SortBy)),
		attribute.String("donors.direction", string(q.Direction)),
		attribute.Int("donors.page", q.Page),
	)

	records, err := s.store.ListDonations(ctx, domain.DonationFilter{Status: domain.StatusCompleted})
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(q.Search))
	profiles := make([]domain.DonorProfile, 0)
	for _, acc := range aggregateDonors(records) {
		if acc.matches(term) {
			profiles = append(profiles, acc.profile)
		}
	}
	sortDonors(profiles, q.SortBy, q.Direction)

	total := len(profiles)
	rows := []domain.DonorProfile{}
	if offset := q.Offset(); offset < total {
		end := offset + q.PageSize
		if end > total {
			end = total
		}
		rows = profiles[offset:end]
	}

	return &domain.DonorPage{
		Rows:       rows,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: (total + q.PageSize - 1) / q.PageSize,
		SortBy:     string(q.SortBy),
		Direction:  string(q.Direction),
	}, nil
}

// History returns every record of one donor, any status, newest first.
func (s *DonorService) History(ctx context.Context, email string) ([]domain.Donation, error) {
	ctx, span := ledgerTracer.Start(ctx, "DonorService.History")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" {
		return nil, &domain.ErrValidation{Field: "donor_email", Message: "required"}
	}
	return s.store.ListDonations(ctx, domain.DonationFilter{DonorEmail: email})
}

func (s *DonorService) defaultPageSize(ctx context.Context) int {
	if s.settings == nil {
		return defaultDonorsPerPage
	}
	if n := s.settings.Int(ctx, domain.SettingDonorsPerPage); n >= 1 {
		return n
	}
	return defaultDonorsPerPage
}
