package handler

import (
	"net/http"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Reports & exports
// ============================================================

func reportStatsHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/stats")
		defer span.End()

		window := windowFromQuery(r)
		span.SetAttributes(attribute.String("report.window", window.Key()))

		stats, err := svc.ComputeStats(ctx, window)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func reportChartHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/chart")
		defer span.End()

		chart, err := svc.Chart(ctx, windowFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, chart)
	}
}

func exportHandler(svc *service.ExportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/export")
		defer span.End()

		format, err := domain.ParseExportFormat(r.URL.Query().Get("format"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		file, err := svc.Export(ctx, format, windowFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeAttachment(w, file)
	}
}

func archiveExportHandler(svc *service.ExportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports/export/archive")
		defer span.End()

		format, err := domain.ParseExportFormat(r.URL.Query().Get("format"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := svc.Archive(ctx, format, windowFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}
