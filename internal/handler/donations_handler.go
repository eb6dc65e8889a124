package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Donations
// ============================================================

// createDonationHandler is the public intake. Donations always start pending
// and must reach the configured minimum amount.
func createDonationHandler(svc *service.DonationService, settings *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/donations")
		defer span.End()

		var draft domain.DonationDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if draft.Status != "" && draft.Status != domain.StatusPending {
			handleServiceError(w, &domain.ErrValidation{Field: "status", Message: "new donations must be pending"}, logger)
			return
		}
		if err := settings.CheckIntakeAmount(ctx, draft.Amount); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		donation, err := svc.Create(ctx, &draft)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, donation)
	}
}

// importDonationHandler records a donation whose outcome may already be
// known, e.g. when backfilling from a payment provider.
func importDonationHandler(svc *service.DonationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/donations/import")
		defer span.End()

		var draft domain.DonationDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		donation, err := svc.Create(ctx, &draft)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		logger.Info("donation imported",
			zap.Int64("id", donation.ID),
			zap.String("admin", AdminFromContext(ctx)),
		)
		writeJSON(w, http.StatusCreated, donation)
	}
}

func listDonationsHandler(svc *service.DonationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/donations")
		defer span.End()

		filter, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		filter.DonorEmail = r.URL.Query().Get("donor_email")
		filter.Status = domain.DonationStatus(r.URL.Query().Get("status"))

		donations, err := svc.List(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("donations.count", len(donations)))
		writeJSON(w, http.StatusOK, donations)
	}
}

func sumDonationsHandler(svc *service.DonationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/donations/sum")
		defer span.End()

		filter, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		total, err := svc.SumCompleted(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SumResponse{
			Total: total,
			From:  r.URL.Query().Get("from"),
			To:    r.URL.Query().Get("to"),
		})
	}
}

func getDonationHandler(svc *service.DonationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/donations/{donationId}")
		defer span.End()

		id, err := parseDonationID(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		donation, err := svc.Get(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, donation)
	}
}

func transitionStatusHandler(svc *service.DonationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/donations/{donationId}/status")
		defer span.End()

		id, err := parseDonationID(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req domain.StatusTransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		donation, err := svc.TransitionStatus(ctx, id, req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, donation)
	}
}
