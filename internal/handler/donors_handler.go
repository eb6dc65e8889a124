package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Donors
// ============================================================

func listDonorsHandler(svc *service.DonorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/donors")
		defer span.End()

		page, pageSize := parsePagination(r)
		q := r.URL.Query()
		result, err := svc.ListDonors(ctx, domain.DonorQuery{
			Search:    q.Get("search"),
			SortBy:    domain.ParseDonorSortColumn(q.Get("sort_by")),
			Direction: domain.ParseSortDirection(q.Get("order")),
			Page:      page,
			PageSize:  pageSize,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func donorHistoryHandler(svc *service.DonorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/donors/{email}/history")
		defer span.End()

		history, err := svc.History(ctx, emailParam(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func donorExportHandler(svc *service.ExportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/donors/{email}/export")
		defer span.End()

		file, err := svc.DonorExport(ctx, emailParam(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeAttachment(w, file)
	}
}

func writeAttachment(w http.ResponseWriter, file *domain.ExportFile) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Body)
}
