package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/infra/observability"
	"github.com/boddenberg/donations-ledger-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var reportTracer = otel.Tracer("service/reports")

const (
	topCountries = 10
	topDonors    = 10
	trendMonths  = 12
)

// ReportService computes period statistics over completed records.
type ReportService struct {
	store   port.DonationStore
	cache   port.Cache[*domain.ReportStats] // optional
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService creates a report service. cache may be nil.
func NewReportService(store port.DonationStore, cache port.Cache[*domain.ReportStats], metrics *observability.Metrics, logger *zap.Logger) *ReportService {
	return &ReportService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// ComputeStats returns totals, breakdowns, the trailing 12-month trend and
// the top donors for window. The trend ignores window.
func (s *ReportService) ComputeStats(ctx context.Context, window domain.ReportWindow) (*domain.ReportStats, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.ComputeStats")
	defer span.End()
	span.SetAttributes(attribute.String("report.window", window.Key()))

	if s.cache != nil {
		if cached, ok := s.cache.Get(window.Key()); ok {
			s.metrics.IncrCacheHit("report")
			return cached, nil
		}
		s.metrics.IncrCacheMiss("report")
	}

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("compute_stats", time.Since(start)) }()

	now := s.now().UTC()
	windowFilter := window.Filter(now)
	windowFilter.Status = domain.StatusCompleted
	since := trendStart(now)
	trendFilter := domain.DonationFilter{From: &since, Status: domain.StatusCompleted}

	var windowRecords, trendRecords []domain.Donation
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.store.ListDonations(gCtx, windowFilter)
		if err != nil {
			return fmt.Errorf("window records: %w", err)
		}
		windowRecords = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.ListDonations(gCtx, trendFilter)
		if err != nil {
			return fmt.Errorf("trend records: %w", err)
		}
		trendRecords = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("report computation failed", zap.String("window", window.Key()), zap.Error(err))
		return nil, err
	}

	stats := buildStats(window, windowFilter, windowRecords, trendRecords)

	if s.cache != nil {
		s.cache.Set(window.Key(), stats)
	}
	return stats, nil
}

// Chart returns the month trend and payment-method breakdown of window.
func (s *ReportService) Chart(ctx context.Context, window domain.ReportWindow) (*domain.ChartData, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Chart")
	defer span.End()

	stats, err := s.ComputeStats(ctx, window)
	if err != nil {
		return nil, err
	}
	return &domain.ChartData{
		ByMonth:         stats.ByMonth,
		ByPaymentMethod: stats.ByPaymentMethod,
	}, nil
}

// trendStart is the first instant of the month eleven months before now.
func trendStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(trendMonths - 1), 0)
}

func buildStats(window domain.ReportWindow, filter domain.DonationFilter, records, trend []domain.Donation) *domain.ReportStats {
	stats := &domain.ReportStats{
		Period:      string(window.Range),
		PeriodLabel: window.Label(),
		TotalAmount: decimal.Zero,
	}
	if filter.From != nil {
		stats.From = filter.From.Format(time.RFC3339)
	}
	if filter.To != nil {
		stats.To = filter.To.Format(time.RFC3339)
	}

	for i := range records {
		stats.TotalCount++
		stats.TotalAmount = stats.TotalAmount.Add(records[i].Amount)
		if records[i].IsRecurring() {
			stats.RecurringCount++
		}
	}
	stats.AverageAmount = average(stats.TotalAmount, stats.TotalCount)

	stats.ByPaymentMethod = breakdown(records, func(d *domain.Donation) string {
		return string(d.PaymentMethod)
	})
	stats.ByCountry = breakdown(records, func(d *domain.Donation) string {
		if d.DonorCountry == "" {
			return domain.UnknownCountry
		}
		return d.DonorCountry
	})
	if len(stats.ByCountry) > topCountries {
		stats.ByCountry = stats.ByCountry[:topCountries]
	}

	stats.ByMonth = monthBuckets(trend)

	profiles := make([]domain.DonorProfile, 0)
	for _, acc := range aggregateDonors(records) {
		profiles = append(profiles, acc.profile)
	}
	sortDonors(profiles, domain.SortTotalDonated, domain.SortDesc)
	if len(profiles) > topDonors {
		profiles = profiles[:topDonors]
	}
	stats.TopDonors = profiles

	return stats
}

// monthBuckets groups records by YYYY-MM in ascending order. Months without
// records are omitted.
func monthBuckets(records []domain.Donation) []domain.MonthBucket {
	rows := breakdown(records, func(d *domain.Donation) string {
		return d.CreatedAt.UTC().Format("2006-01")
	})
	out := make([]domain.MonthBucket, len(rows))
	for i, r := range rows {
		out[i] = domain.MonthBucket{Month: r.Key, Count: r.Count, Total: r.Total}
	}
	sortMonths(out)
	return out
}
