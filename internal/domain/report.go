package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Report window
// ============================================================

// WindowRange names a report time filter.
type WindowRange string

const (
	RangeLast7Days   WindowRange = "last_7_days"
	RangeLast30Days  WindowRange = "last_30_days"
	RangeLast90Days  WindowRange = "last_90_days"
	RangeLast365Days WindowRange = "last_365_days"
	RangeAllTime     WindowRange = "all_time"
	RangeCustom      WindowRange = "custom"
)

// DateLayout is the calendar-day format used by custom windows.
const DateLayout = "2006-01-02"

// ReportWindow is a resolved time filter. For custom windows Start and End
// are calendar days (UTC), both inclusive.
type ReportWindow struct {
	Range WindowRange
	Start time.Time
	End   time.Time
}

var rangeDays = map[WindowRange]int{
	RangeLast7Days:   7,
	RangeLast30Days:  30,
	RangeLast90Days:  90,
	RangeLast365Days: 365,
}

// ParseWindow builds a window from untrusted query values. It accepts both
// the named ranges and the short numeric aliases (7, 30, 90, 365, all).
// A custom window with a missing or unparseable date, or an unknown period,
// degrades to all_time.
func ParseWindow(period, startDate, endDate string) ReportWindow {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "7", string(RangeLast7Days):
		return ReportWindow{Range: RangeLast7Days}
	case "30", string(RangeLast30Days):
		return ReportWindow{Range: RangeLast30Days}
	case "90", string(RangeLast90Days):
		return ReportWindow{Range: RangeLast90Days}
	case "365", string(RangeLast365Days):
		return ReportWindow{Range: RangeLast365Days}
	case string(RangeCustom):
		start, errStart := time.Parse(DateLayout, strings.TrimSpace(startDate))
		end, errEnd := time.Parse(DateLayout, strings.TrimSpace(endDate))
		if errStart != nil || errEnd != nil {
			return ReportWindow{Range: RangeAllTime}
		}
		if end.Before(start) {
			start, end = end, start
		}
		return ReportWindow{Range: RangeCustom, Start: start, End: end}
	}
	return ReportWindow{Range: RangeAllTime}
}

// Filter resolves the window against now into a created_at filter.
func (w ReportWindow) Filter(now time.Time) DonationFilter {
	now = now.UTC()
	if days, ok := rangeDays[w.Range]; ok {
		from := now.AddDate(0, 0, -days)
		return DonationFilter{From: &from}
	}
	if w.Range == RangeCustom {
		from := w.Start.UTC()
		to := w.End.UTC().AddDate(0, 0, 1)
		return DonationFilter{From: &from, To: &to}
	}
	return DonationFilter{}
}

// Label is the human title of the window, in the source locale.
func (w ReportWindow) Label() string {
	switch w.Range {
	case RangeLast7Days:
		return "Últimos 7 días"
	case RangeLast30Days:
		return "Últimos 30 días"
	case RangeLast90Days:
		return "Últimos 3 meses"
	case RangeLast365Days:
		return "Último año"
	case RangeCustom:
		return fmt.Sprintf("Del %s al %s", w.Start.Format(DateLayout), w.End.Format(DateLayout))
	}
	return "Todos los datos"
}

// Key identifies the window for caching.
func (w ReportWindow) Key() string {
	if w.Range == RangeCustom {
		return fmt.Sprintf("%s:%s:%s", w.Range, w.Start.Format(DateLayout), w.End.Format(DateLayout))
	}
	return string(w.Range)
}

// ============================================================
// Report statistics
// ============================================================

// UnknownCountry is the bucket for donations without a country.
const UnknownCountry = "unknown"

// BreakdownRow is one group of a payment-method or country breakdown.
type BreakdownRow struct {
	Key   string          `json:"key"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// MonthBucket is one month of the trailing trend.
type MonthBucket struct {
	Month string          `json:"month"` // YYYY-MM
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// ReportStats is returned by GET /v1/reports/stats.
type ReportStats struct {
	Period          string          `json:"period"`
	PeriodLabel     string          `json:"period_label"`
	From            string          `json:"from,omitempty"`
	To              string          `json:"to,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalCount      int             `json:"total_count"`
	RecurringCount  int             `json:"recurring_count"`
	AverageAmount   decimal.Decimal `json:"average_amount"`
	ByPaymentMethod []BreakdownRow  `json:"by_payment_method"`
	ByCountry       []BreakdownRow  `json:"by_country"`
	ByMonth         []MonthBucket   `json:"by_month"`
	TopDonors       []DonorProfile  `json:"top_donors"`
}

// ChartData is the reduced payload of GET /v1/reports/chart.
type ChartData struct {
	ByMonth         []MonthBucket  `json:"by_month"`
	ByPaymentMethod []BreakdownRow `json:"by_payment_method"`
}

// ============================================================
// Goal progress
// ============================================================

// GoalProgress compares an accumulated total against a target.
type GoalProgress struct {
	Goal       decimal.Decimal `json:"goal"`
	Current    decimal.Decimal `json:"current"`
	Percentage decimal.Decimal `json:"percentage"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// ============================================================
// Export
// ============================================================

// ExportFormat selects the serializer output.
type ExportFormat string

const (
	ExportCSV   ExportFormat = "csv"
	ExportTable ExportFormat = "spreadsheet_table"
)

// ParseExportFormat accepts csv, spreadsheet_table and the legacy alias excel.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(ExportCSV):
		return ExportCSV, nil
	case string(ExportTable), "excel", "xls":
		return ExportTable, nil
	}
	return "", &ErrValidation{Field: "format", Message: fmt.Sprintf("unsupported export format %q", raw)}
}

// Extension is the file extension for the format.
func (f ExportFormat) Extension() string {
	if f == ExportTable {
		return "xls"
	}
	return "csv"
}

// ContentType is the MIME type for the format.
func (f ExportFormat) ContentType() string {
	if f == ExportTable {
		return "application/vnd.ms-excel"
	}
	return "text/csv; charset=utf-8"
}

// ExportFile is a serialized export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ArchiveResponse is returned by POST /v1/reports/export/archive.
type ArchiveResponse struct {
	Location string `json:"location"`
	Filename string `json:"filename"`
	Bytes    int    `json:"bytes"`
}
