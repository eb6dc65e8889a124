// Package service provides the business logic layer (use cases) of the
// donation ledger: record intake and status transitions, donor aggregation,
// reporting, exports, settings and admin authentication.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/infra/observability"
	"github.com/boddenberg/donations-ledger-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

// DonationService owns the donation record lifecycle: validation on
// creation, the pending -> completed|failed state machine, listings and sums.
type DonationService struct {
	store   port.DonationStore
	reports port.Cache[*domain.ReportStats] // optional; purged on every write
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewDonationService creates a donation service. reports may be nil.
func NewDonationService(store port.DonationStore, reports port.Cache[*domain.ReportStats], metrics *observability.Metrics, logger *zap.Logger) *DonationService {
	return &DonationService{
		store:   store,
		reports: reports,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Create validates draft and stores it. Nothing is written when validation
// fails.
func (s *DonationService) Create(ctx context.Context, draft *domain.DonationDraft) (*domain.Donation, error) {
	ctx, span := ledgerTracer.Start(ctx, "DonationService.Create")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_donation", time.Since(start)) }()

	d, err := validateDraft(draft)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	stored, err := s.store.InsertDonation(ctx, d)
	if err != nil {
		s.observeStoreError(err)
		return nil, err
	}
	s.invalidateReports()

	s.metrics.IncrDonationCreated(stored.Status)
	if stored.Status == domain.StatusCompleted {
		s.metrics.AddCompletedAmount(stored.Amount.InexactFloat64())
	}
	span.SetAttributes(
		attribute.Int64("donation.id", stored.ID),
		attribute.String("donation.status", string(stored.Status)),
	)
	s.logger.Info("donation recorded",
		zap.Int64("id", stored.ID),
		zap.String("status", string(stored.Status)),
		zap.String("frequency", string(stored.Frequency)),
		zap.String("payment_method", string(stored.PaymentMethod)),
		zap.String("amount", stored.Amount.StringFixed(2)),
	)
	return stored, nil
}

// TransitionStatus moves a pending donation to completed or failed. A record
// that is already terminal yields *domain.ErrState, including when the
// requested status equals the current one.
func (s *DonationService) TransitionStatus(ctx context.Context, id int64, to domain.DonationStatus) (*domain.Donation, error) {
	ctx, span := ledgerTracer.Start(ctx, "DonationService.TransitionStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("donation.id", id), attribute.String("donation.to", string(to)))

	if !to.IsTerminal() {
		return nil, &domain.ErrValidation{Field: "status", Message: "must be completed or failed"}
	}

	updated, ok, err := s.store.UpdateDonationStatus(ctx, id, domain.StatusPending, to, s.now().UTC())
	if err != nil {
		s.observeStoreError(err)
		return nil, err
	}
	if !ok {
		s.metrics.IncrTransition("rejected", to)
		s.logger.Warn("status transition rejected",
			zap.Int64("id", id),
			zap.String("current", string(updated.Status)),
			zap.String("requested", string(to)),
		)
		return nil, &domain.ErrState{ID: id, Current: updated.Status, Requested: to}
	}
	s.invalidateReports()

	s.metrics.IncrTransition("applied", to)
	if to == domain.StatusCompleted {
		s.metrics.AddCompletedAmount(updated.Amount.InexactFloat64())
	}
	s.logger.Info("donation status changed",
		zap.Int64("id", id),
		zap.String("status", string(to)),
	)
	return updated, nil
}

// Get returns one donation by id.
func (s *DonationService) Get(ctx context.Context, id int64) (*domain.Donation, error) {
	ctx, span := ledgerTracer.Start(ctx, "DonationService.Get")
	defer span.End()

	d, err := s.store.GetDonation(ctx, id)
	if err != nil {
		s.observeStoreError(err)
		return nil, err
	}
	return d, nil
}

// List returns donations matching filter, newest first.
func (s *DonationService) List(ctx context.Context, filter domain.DonationFilter) ([]domain.Donation, error) {
	ctx, span := ledgerTracer.Start(ctx, "DonationService.List")
	defer span.End()

	if filter.DonorEmail != "" {
		filter.DonorEmail = normalizeEmail(filter.DonorEmail)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "must be pending, completed or failed"}
	}

	rows, err := s.store.ListDonations(ctx, filter)
	if err != nil {
		s.observeStoreError(err)
		return nil, err
	}
	return rows, nil
}

// SumCompleted sums completed amounts inside the filter's date range. Any
// status or donor constraint on filter is ignored.
func (s *DonationService) SumCompleted(ctx context.Context, filter domain.DonationFilter) (decimal.Decimal, error) {
	ctx, span := ledgerTracer.Start(ctx, "DonationService.SumCompleted")
	defer span.End()

	total, err := s.store.SumCompleted(ctx, domain.DonationFilter{From: filter.From, To: filter.To})
	if err != nil {
		s.observeStoreError(err)
		return decimal.Zero, err
	}
	return total, nil
}

func (s *DonationService) invalidateReports() {
	if s.reports != nil {
		s.reports.Purge()
	}
}

func (s *DonationService) observeStoreError(err error) {
	var storageErr *domain.ErrStorage
	if errors.As(err, &storageErr) {
		s.metrics.IncrStoreError(storageErr.Op)
		s.logger.Error("store failure", zap.String("op", storageErr.Op), zap.Error(storageErr.Err))
	}
}

// ============================================================
// Validation
// ============================================================

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateDraft checks every field of draft and returns the record to store.
func validateDraft(draft *domain.DonationDraft) (*domain.Donation, error) {
	if draft == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "required"}
	}

	email := normalizeEmail(draft.DonorEmail)
	if email == "" {
		return nil, &domain.ErrValidation{Field: "donor_email", Message: "required"}
	}
	if utf8.RuneCountInString(email) > domain.MaxEmailLength {
		return nil, &domain.ErrValidation{Field: "donor_email", Message: fmt.Sprintf("must be at most %d characters", domain.MaxEmailLength)}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Name != "" || addr.Address != email {
		return nil, &domain.ErrValidation{Field: "donor_email", Message: "invalid email address"}
	}

	name := strings.TrimSpace(draft.DonorName)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "donor_name", Message: "required"}
	}
	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		return nil, &domain.ErrValidation{Field: "donor_name", Message: fmt.Sprintf("must be at most %d characters", domain.MaxNameLength)}
	}

	country := strings.ToUpper(strings.TrimSpace(draft.DonorCountry))
	if country != "" && !isCountryCode(country) {
		return nil, &domain.ErrValidation{Field: "donor_country", Message: "must be a two-letter country code"}
	}

	if err := checkAmountScale(draft.Amount); err != nil {
		return nil, err
	}
	if !draft.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}
	if !draft.Amount.Equal(draft.Amount.Round(2)) {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must have at most two decimal places"}
	}
	if draft.Amount.GreaterThan(domain.MaxAmount) {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be at most " + domain.MaxAmount.StringFixed(2)}
	}

	frequency := draft.Frequency
	if frequency == "" {
		frequency = domain.FrequencyOnce
	}
	if !frequency.Valid() {
		return nil, &domain.ErrValidation{Field: "frequency", Message: "must be once or monthly"}
	}

	if !draft.PaymentMethod.Valid() {
		return nil, &domain.ErrValidation{Field: "payment_method", Message: "must be paypal, card or bank_transfer"}
	}

	status := draft.Status
	if status == "" {
		status = domain.StatusPending
	}
	if !status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "must be pending, completed or failed"}
	}

	subscription := strings.TrimSpace(draft.SubscriptionReference)
	if subscription != "" && frequency != domain.FrequencyMonthly {
		return nil, &domain.ErrValidation{Field: "subscription_reference", Message: "only allowed for monthly donations"}
	}
	if utf8.RuneCountInString(subscription) > domain.MaxSubscriptionReferenceLength {
		return nil, &domain.ErrValidation{Field: "subscription_reference", Message: fmt.Sprintf("must be at most %d characters", domain.MaxSubscriptionReferenceLength)}
	}

	var orderRef *int64
	if draft.OrderReference != nil {
		ref := *draft.OrderReference
		orderRef = &ref
	}

	return &domain.Donation{
		OrderReference:        orderRef,
		DonorEmail:            email,
		DonorName:             name,
		DonorCountry:          country,
		Amount:                draft.Amount,
		Frequency:             frequency,
		PaymentMethod:         draft.PaymentMethod,
		Status:                status,
		Message:               draft.Message,
		SubscriptionReference: subscription,
	}, nil
}

// checkAmountScale runs before any arithmetic on a caller-supplied amount.
func checkAmountScale(amount decimal.Decimal) error {
	if !domain.WithinDecimalScale(amount) {
		return &domain.ErrValidation{Field: "amount", Message: "out of range"}
	}
	return nil
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
