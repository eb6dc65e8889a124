package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/export"
	"github.com/boddenberg/donations-ledger-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var settingsTracer = otel.Tracer("service/settings")

// SettingsService is the typed view over the settings store. Readers never
// fail: a missing key, a malformed value or a store error yields the
// declared default.
type SettingsService struct {
	store  port.SettingsStore
	schema domain.SettingsSchema
	logger *zap.Logger
}

// NewSettingsService creates a settings service over store with the given
// declared keys and defaults.
func NewSettingsService(store port.SettingsStore, schema domain.SettingsSchema, logger *zap.Logger) *SettingsService {
	return &SettingsService{store: store, schema: schema, logger: logger}
}

// raw returns the stored value for key or its declared default.
func (s *SettingsService) raw(ctx context.Context, key string) string {
	def := s.schema[key]
	v, found, err := s.store.GetSetting(ctx, key)
	if err != nil {
		s.logger.Warn("settings read failed, using default",
			zap.String("key", key),
			zap.Error(err),
		)
		return def.Default
	}
	if !found {
		return def.Default
	}
	return v
}

func (s *SettingsService) warnMalformed(key, value string) {
	s.logger.Warn("malformed setting, using default",
		zap.String("key", key),
		zap.String("value", value),
	)
}

// Text returns a text setting.
func (s *SettingsService) Text(ctx context.Context, key string) string {
	return s.raw(ctx, key)
}

// Number returns a numeric setting.
func (s *SettingsService) Number(ctx context.Context, key string) decimal.Decimal {
	v := s.raw(ctx, key)
	if n, ok := domain.ParseNumber(v); ok {
		return n
	}
	s.warnMalformed(key, v)
	n, _ := domain.ParseNumber(s.schema[key].Default)
	return n
}

// Int returns a numeric setting truncated to an integer.
func (s *SettingsService) Int(ctx context.Context, key string) int {
	return int(s.Number(ctx, key).IntPart())
}

// Bool returns a boolean setting.
func (s *SettingsService) Bool(ctx context.Context, key string) bool {
	v := s.raw(ctx, key)
	if b, ok := domain.ParseBool(v); ok {
		return b
	}
	s.warnMalformed(key, v)
	b, _ := domain.ParseBool(s.schema[key].Default)
	return b
}

// Decimals returns an ordered decimal list setting.
func (s *SettingsService) Decimals(ctx context.Context, key string) []decimal.Decimal {
	v := s.raw(ctx, key)
	if list, ok := domain.ParseDecimals(v); ok {
		return list
	}
	s.warnMalformed(key, v)
	list, ok := domain.ParseDecimals(s.schema[key].Default)
	if !ok {
		return []decimal.Decimal{}
	}
	return list
}

// FrequencyLabels returns the export labels for monthly and once.
func (s *SettingsService) FrequencyLabels(ctx context.Context) export.FrequencyLabels {
	return export.FrequencyLabels{
		Monthly: s.Text(ctx, domain.SettingLabelFrequencyMonthly),
		Once:    s.Text(ctx, domain.SettingLabelFrequencyOnce),
	}
}

// FormConfig returns the public configuration of the donation form.
func (s *SettingsService) FormConfig(ctx context.Context) *domain.FormConfig {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.FormConfig")
	defer span.End()

	methods := make([]domain.PaymentMethod, 0, 3)
	if s.Bool(ctx, domain.SettingPayPalEnabled) {
		methods = append(methods, domain.PaymentPayPal)
	}
	if s.Bool(ctx, domain.SettingStripeEnabled) {
		methods = append(methods, domain.PaymentCard)
	}
	if s.Bool(ctx, domain.SettingBACSEnabled) {
		methods = append(methods, domain.PaymentBankTransfer)
	}

	return &domain.FormConfig{
		FoundationName:     s.Text(ctx, domain.SettingFoundationName),
		Amounts:            s.Decimals(ctx, domain.SettingAmounts),
		MinAmount:          s.Number(ctx, domain.SettingMinAmount),
		EnableCustomAmount: s.Bool(ctx, domain.SettingEnableCustomAmount),
		EnableRecurring:    s.Bool(ctx, domain.SettingEnableRecurring),
		PaymentMethods:     methods,
	}
}

// CheckIntakeAmount rejects amounts below the min_amount setting.
func (s *SettingsService) CheckIntakeAmount(ctx context.Context, amount decimal.Decimal) error {
	if err := checkAmountScale(amount); err != nil {
		return err
	}
	minimum := s.Number(ctx, domain.SettingMinAmount)
	if amount.LessThan(minimum) {
		return &domain.ErrValidation{Field: "amount", Message: fmt.Sprintf("must be at least %s", minimum.StringFixed(2))}
	}
	return nil
}

// Snapshot returns the effective value of every declared key.
func (s *SettingsService) Snapshot(ctx context.Context) (map[string]string, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.Snapshot")
	defer span.End()

	stored, err := s.store.AllSettings(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(s.schema))
	for _, key := range s.schema.Keys() {
		def := s.schema[key]
		out[key] = def.Default
		if v, ok := stored[key]; ok {
			if norm, valid := def.Normalize(v); valid {
				out[key] = norm
			}
		}
	}
	return out, nil
}

// Save validates every entry of partial against the declared kinds and then
// writes them in one call. Nothing is written when any entry is rejected.
// It returns how many keys changed.
func (s *SettingsService) Save(ctx context.Context, partial map[string]string) (int, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.Save")
	defer span.End()

	normalized := make(map[string]string, len(partial))
	for _, key := range sortedKeys(partial) {
		def, ok := s.schema[key]
		if !ok {
			return 0, &domain.ErrValidation{Field: key, Message: "unknown setting"}
		}
		v, ok := def.Normalize(partial[key])
		if !ok {
			return 0, &domain.ErrValidation{Field: key, Message: fmt.Sprintf("must be a %s", def.Kind)}
		}
		normalized[key] = v
	}
	if len(normalized) == 0 {
		return 0, nil
	}

	applied, err := s.store.SaveSettings(ctx, normalized)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("settings.applied", applied))

	s.logger.Info("settings saved",
		zap.Int("submitted", len(normalized)),
		zap.Int("applied", applied),
	)
	return applied, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
