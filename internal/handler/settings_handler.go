package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================================
// Settings & progress
// ============================================================

func formConfigHandler(settings *service.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/settings/form")
		defer span.End()

		writeJSON(w, http.StatusOK, settings.FormConfig(ctx))
	}
}

func getSettingsHandler(settings *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/settings")
		defer span.End()

		values, err := settings.Snapshot(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, values)
	}
}

func saveSettingsHandler(settings *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/settings")
		defer span.End()

		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var body map[string]any
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		partial := make(map[string]string, len(body))
		for k, v := range body {
			s, ok := settingString(v)
			if !ok {
				handleServiceError(w, &domain.ErrValidation{Field: k, Message: "unsupported value type"}, logger)
				return
			}
			partial[k] = s
		}

		applied, err := settings.Save(ctx, partial)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SettingsSaveResponse{Applied: applied})
	}
}

// settingString flattens a JSON value into the string form settings are
// stored in. Arrays become comma-separated lists.
func settingString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := settingString(item)
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), true
	}
	return "", false
}

// progressHandler serves the goal widget. Omitted goal falls back to the goal
// setting; omitted current is the completed total of all time.
func progressHandler(donations *service.DonationService, settings *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/progress")
		defer span.End()

		goal, err := decimalParam(r, "goal")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if goal == nil {
			g := settings.Number(ctx, domain.SettingGoal)
			goal = &g
		}

		current, err := decimalParam(r, "current")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if current == nil {
			sum, err := donations.SumCompleted(ctx, domain.DonationFilter{})
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			current = &sum
		}

		writeJSON(w, http.StatusOK, service.ComputeProgress(*goal, *current))
	}
}

func decimalParam(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &domain.ErrValidation{Field: name, Message: fmt.Sprintf("%q is not a number", raw)}
	}
	if !domain.WithinDecimalScale(d) {
		return nil, &domain.ErrValidation{Field: name, Message: "out of range"}
	}
	return &d, nil
}
