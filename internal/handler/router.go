// Package handler exposes the donation ledger over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/boddenberg/donations-ledger-go/internal/infra/observability"
	"github.com/boddenberg/donations-ledger-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the collaborators the routes call into. Auth may be nil,
// in which case every admin route answers 503.
type Services struct {
	Donations *service.DonationService
	Donors    *service.DonorService
	Reports   *service.ReportService
	Exports   *service.ExportService
	Settings  *service.SettingsService
	Auth      *service.AuthService
	Store     Pinger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Store))
	r.Get("/readyz", readyzHandler(svc.Store, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Public
		// =============================================
		r.Post("/auth/token", issueTokenHandler(svc.Auth, logger))
		r.Post("/donations", createDonationHandler(svc.Donations, svc.Settings, logger))
		r.Get("/progress", progressHandler(svc.Donations, svc.Settings, logger))
		r.Get("/settings/form", formConfigHandler(svc.Settings))

		// =============================================
		// Admin
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(svc.Auth, logger))

			r.Get("/donations", listDonationsHandler(svc.Donations, logger))
			r.Post("/donations/import", importDonationHandler(svc.Donations, logger))
			r.Get("/donations/sum", sumDonationsHandler(svc.Donations, logger))
			r.Get("/donations/{donationId}", getDonationHandler(svc.Donations, logger))
			r.Post("/donations/{donationId}/status", transitionStatusHandler(svc.Donations, logger))

			r.Get("/donors", listDonorsHandler(svc.Donors, logger))
			r.Get("/donors/{email}/history", donorHistoryHandler(svc.Donors, logger))
			r.Get("/donors/{email}/export", donorExportHandler(svc.Exports, logger))

			r.Get("/reports/stats", reportStatsHandler(svc.Reports, logger))
			r.Get("/reports/chart", reportChartHandler(svc.Reports, logger))
			r.Get("/reports/export", exportHandler(svc.Exports, logger))
			r.Post("/reports/export/archive", archiveExportHandler(svc.Exports, logger))

			r.Get("/settings", getSettingsHandler(svc.Settings, logger))
			r.Put("/settings", saveSettingsHandler(svc.Settings, logger))

			r.Get("/metrics/ledger", ledgerMetricsHandler(metrics))
		})
	})

	return r
}
