package domain

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ============================================================
// Settings
// ============================================================

// SettingKind is the declared type of a setting value.
type SettingKind string

const (
	KindText     SettingKind = "text"
	KindNumber   SettingKind = "number"
	KindBool     SettingKind = "boolean"
	KindDecimals SettingKind = "decimal_list"
)

// SettingDefinition declares a setting key, its kind and its default. All
// values are carried as strings; the kind decides how they are parsed.
type SettingDefinition struct {
	Key     string      `json:"key" yaml:"key"`
	Kind    SettingKind `json:"kind" yaml:"kind"`
	Default string      `json:"default" yaml:"default"`
}

// Setting keys read by the ledger.
const (
	SettingFoundationName        = "foundation_name"
	SettingAmounts               = "amounts"
	SettingEnableCustomAmount    = "enable_custom_amount"
	SettingMinAmount             = "min_amount"
	SettingEnableRecurring       = "enable_recurring"
	SettingPayPalEnabled         = "paypal_enabled"
	SettingStripeEnabled         = "stripe_enabled"
	SettingBACSEnabled           = "bacs_enabled"
	SettingGoal                  = "goal"
	SettingDonorsPerPage         = "donors_per_page"
	SettingLabelFrequencyMonthly = "label_frequency_monthly"
	SettingLabelFrequencyOnce    = "label_frequency_once"
)

// SettingsSchema maps each declared key to its definition.
type SettingsSchema map[string]SettingDefinition

// DefaultSettings returns the declared keys with their defaults.
func DefaultSettings() SettingsSchema {
	defs := []SettingDefinition{
		{SettingFoundationName, KindText, "Mi Fundación"},
		{"foundation_description", KindText, "Tu donación hace la diferencia en la vida de muchas personas que lo necesitan"},
		{SettingAmounts, KindDecimals, "10,20,40,100"},
		{SettingEnableCustomAmount, KindBool, "true"},
		{SettingMinAmount, KindNumber, "1"},
		{SettingEnableRecurring, KindBool, "true"},
		{"primary_color", KindText, "#4CAF50"},
		{"background_color", KindText, "#ffffff"},
		{"form_style", KindText, "modern"},
		{"enable_logo", KindBool, "false"},
		{"logo_url", KindText, ""},
		{SettingPayPalEnabled, KindBool, "true"},
		{SettingStripeEnabled, KindBool, "true"},
		{SettingBACSEnabled, KindBool, "true"},
		{"subscription_handler", KindText, "native"},
		{"email_enabled", KindBool, "true"},
		{"email_subject", KindText, "¡Gracias por tu donación!"},
		{"email_message", KindText, "Estimado/a {donor_name},\n\n¡Gracias por tu donación de {amount}!"},
		{"admin_notifications", KindBool, "true"},
		{"admin_email", KindText, ""},
		{SettingGoal, KindNumber, "5000"},
		{SettingDonorsPerPage, KindNumber, "20"},
		{SettingLabelFrequencyMonthly, KindText, "Mensual"},
		{SettingLabelFrequencyOnce, KindText, "Única"},
	}
	schema := make(SettingsSchema, len(defs))
	for _, d := range defs {
		schema[d.Key] = d
	}
	return schema
}

// Keys returns the declared keys in lexical order.
func (s SettingsSchema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseBool accepts the spellings the admin form and the legacy store use.
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off", "":
		return false, true
	}
	return false, false
}

// ParseNumber parses a decimal number setting.
func ParseNumber(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !WithinDecimalScale(d) {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDecimals parses an ordered list written as "10,20,40" or "[10, 20, 40]".
func ParseDecimals(raw string) ([]decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	if strings.TrimSpace(raw) == "" {
		return []decimal.Decimal{}, true
	}
	parts := strings.Split(raw, ",")
	out := make([]decimal.Decimal, 0, len(parts))
	for _, p := range parts {
		d, err := decimal.NewFromString(strings.Trim(strings.TrimSpace(p), `"`))
		if err != nil || !WithinDecimalScale(d) {
			return nil, false
		}
		out = append(out, d)
	}
	return out, true
}

// FormatDecimals is the inverse of ParseDecimals.
func FormatDecimals(values []decimal.Decimal) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

// Normalize checks raw against the declared kind and returns the canonical
// stored form.
func (d SettingDefinition) Normalize(raw string) (string, bool) {
	switch d.Kind {
	case KindBool:
		b, ok := ParseBool(raw)
		if !ok {
			return "", false
		}
		return strconv.FormatBool(b), true
	case KindNumber:
		n, ok := ParseNumber(raw)
		if !ok {
			return "", false
		}
		return n.String(), true
	case KindDecimals:
		list, ok := ParseDecimals(raw)
		if !ok {
			return "", false
		}
		return FormatDecimals(list), true
	}
	return strings.TrimSpace(raw), true
}

// FormConfig is the public configuration of the donation form.
type FormConfig struct {
	FoundationName     string            `json:"foundation_name"`
	Amounts            []decimal.Decimal `json:"amounts"`
	MinAmount          decimal.Decimal   `json:"min_amount"`
	EnableCustomAmount bool              `json:"enable_custom_amount"`
	EnableRecurring    bool              `json:"enable_recurring"`
	PaymentMethods     []PaymentMethod   `json:"payment_methods"`
}

// SettingsSaveResponse is returned by PUT /v1/settings.
type SettingsSaveResponse struct {
	Applied int `json:"applied"`
}
