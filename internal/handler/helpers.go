package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parsePagination reads page and page_size. A missing page_size is returned
// as 0 so the donor listing can fall back to its configured default.
func parsePagination(r *http.Request) (page, pageSize int) {
	page = 1
	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 {
			pageSize = ps
		}
	}
	return
}

// parseDateRange reads from/to as calendar days. to is inclusive on the wire
// and exclusive in the returned filter.
func parseDateRange(r *http.Request) (domain.DonationFilter, error) {
	var filter domain.DonationFilter
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		from, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return filter, &domain.ErrValidation{Field: "from", Message: "must be YYYY-MM-DD"}
		}
		filter.From = &from
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		to, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return filter, &domain.ErrValidation{Field: "to", Message: "must be YYYY-MM-DD"}
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	return filter, nil
}

func parseDonationID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "donationId"), 10, 64)
	if err != nil || id < 1 {
		return 0, &domain.ErrValidation{Field: "donationId", Message: "must be a positive integer"}
	}
	return id, nil
}

func emailParam(r *http.Request) string {
	raw := chi.URLParam(r, "email")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func windowFromQuery(r *http.Request) domain.ReportWindow {
	q := r.URL.Query()
	return domain.ParseWindow(q.Get("period"), q.Get("start_date"), q.Get("end_date"))
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var state *domain.ErrState
	var storage *domain.ErrStorage
	var circuitOpen *domain.ErrCircuitOpen
	var unavailable *domain.ErrUnavailable
	var unauthorized *domain.ErrUnauthorized
	var forbidden *domain.ErrForbidden

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: validation.Field})
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &state):
		logger.Warn("invalid status transition",
			zap.Int64("id", state.ID),
			zap.String("current", string(state.Current)),
			zap.String("requested", string(state.Requested)),
		)
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &unavailable):
		logger.Warn("feature unavailable", zap.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &storage):
		logger.Error("storage failure", zap.String("op", storage.Op), zap.Error(storage.Err))
		writeError(w, http.StatusBadGateway, "storage unavailable")
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
