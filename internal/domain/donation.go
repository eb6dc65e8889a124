// Package domain defines the core entities of the donation ledger.
// These models are independent of storage and transport and represent the
// canonical data structures used throughout the service.
package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Enumerations
// ============================================================

// Frequency tells whether a donation is a one-off or a monthly commitment.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is one of the enumerated frequencies.
func (f Frequency) Valid() bool {
	return f == FrequencyOnce || f == FrequencyMonthly
}

// PaymentMethod is the channel the donor paid through.
type PaymentMethod string

const (
	PaymentPayPal       PaymentMethod = "paypal"
	PaymentCard         PaymentMethod = "card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

// Valid reports whether m is one of the enumerated payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentPayPal, PaymentCard, PaymentBankTransfer:
		return true
	}
	return false
}

// DonationStatus is the lifecycle state of a donation record.
// pending -> completed | failed; both targets are final.
type DonationStatus string

const (
	StatusPending   DonationStatus = "pending"
	StatusCompleted DonationStatus = "completed"
	StatusFailed    DonationStatus = "failed"
)

// Valid reports whether s is one of the enumerated statuses.
func (s DonationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s DonationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ============================================================
// Donation record
// ============================================================

// Donation is a single persisted donation event.
type Donation struct {
	ID                    int64           `json:"id"`
	OrderReference        *int64          `json:"order_reference,omitempty"`
	DonorEmail            string          `json:"donor_email"`
	DonorName             string          `json:"donor_name"`
	DonorCountry          string          `json:"donor_country,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Frequency             Frequency       `json:"frequency"`
	PaymentMethod         PaymentMethod   `json:"payment_method"`
	Status                DonationStatus  `json:"status"`
	Message               string          `json:"message,omitempty"`
	SubscriptionReference string          `json:"subscription_reference,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// IsRecurring reports whether the donation is a monthly commitment.
func (d *Donation) IsRecurring() bool {
	return d.Frequency == FrequencyMonthly
}

// DonationDraft is the caller-supplied input for recording a donation.
// Status may be left empty (pending) or set to a terminal status when the
// payment outcome is already known.
type DonationDraft struct {
	OrderReference        *int64          `json:"order_reference,omitempty"`
	DonorEmail            string          `json:"donor_email"`
	DonorName             string          `json:"donor_name"`
	DonorCountry          string          `json:"donor_country,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Frequency             Frequency       `json:"frequency"`
	PaymentMethod         PaymentMethod   `json:"payment_method"`
	Status                DonationStatus  `json:"status,omitempty"`
	Message               string          `json:"message,omitempty"`
	SubscriptionReference string          `json:"subscription_reference,omitempty"`
}

// Column limits of a stored donation. MaxAmount is the largest NUMERIC(12,2).
var MaxAmount = decimal.RequireFromString("9999999999.99")

const (
	MaxEmailLength                 = 100
	MaxNameLength                  = 255
	MaxSubscriptionReferenceLength = 100
)

const (
	minDecimalExponent = -12
	maxDecimalExponent = 12
	maxDecimalDigits   = 24
)

// WithinDecimalScale reports whether d has an exponent and digit count that a
// money value can use. Comparing values outside it rescales to huge integers.
func WithinDecimalScale(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= minDecimalExponent && exp <= maxDecimalExponent && d.NumDigits() <= maxDecimalDigits
}

// StatusTransitionRequest is the body of POST /v1/donations/{id}/status.
type StatusTransitionRequest struct {
	Status DonationStatus `json:"status"`
}

// DonationFilter narrows record listings and sums. Zero values mean
// "no constraint". From is inclusive, To is exclusive.
type DonationFilter struct {
	From       *time.Time
	To         *time.Time
	DonorEmail string
	Status     DonationStatus
}

// Matches reports whether d satisfies every constraint of the filter.
func (f DonationFilter) Matches(d *Donation) bool {
	if f.From != nil && d.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !d.CreatedAt.Before(*f.To) {
		return false
	}
	if f.DonorEmail != "" && d.DonorEmail != f.DonorEmail {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	return true
}

// SumResponse is returned by GET /v1/donations/sum.
type SumResponse struct {
	Total decimal.Decimal `json:"total"`
	From  string          `json:"from,omitempty"`
	To    string          `json:"to,omitempty"`
}

// ============================================================
// Donor profile (derived, never persisted)
// ============================================================

// DonorProfile aggregates one donor's completed donations.
type DonorProfile struct {
	DonorEmail      string          `json:"donor_email"`
	DonorName       string          `json:"donor_name"`
	DonorCountry    string          `json:"donor_country,omitempty"`
	DonationCount   int             `json:"donation_count"`
	TotalDonated    decimal.Decimal `json:"total_donated"`
	AvgDonation     decimal.Decimal `json:"avg_donation"`
	FirstDonationAt time.Time       `json:"first_donation_at"`
	LastDonationAt  time.Time       `json:"last_donation_at"`
	RecurringCount  int             `json:"recurring_count"`
}

// DonorSortColumn is the allow-listed set of columns donors can be sorted by.
type DonorSortColumn string

const (
	SortDonorName      DonorSortColumn = "donor_name"
	SortDonorEmail     DonorSortColumn = "donor_email"
	SortTotalDonated   DonorSortColumn = "total_donated"
	SortDonationCount  DonorSortColumn = "donation_count"
	SortLastDonationAt DonorSortColumn = "last_donation_at"
)

// ParseDonorSortColumn maps untrusted input onto the allow-list. Anything
// unrecognised becomes SortTotalDonated.
func ParseDonorSortColumn(raw string) DonorSortColumn {
	switch c := DonorSortColumn(raw); c {
	case SortDonorName, SortDonorEmail, SortTotalDonated, SortDonationCount, SortLastDonationAt:
		return c
	}
	return SortTotalDonated
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection accepts asc/desc in any case; anything else is desc.
func ParseSortDirection(raw string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

// DonorQuery is the input of the donor listing.
type DonorQuery struct {
	Search    string
	SortBy    DonorSortColumn
	Direction SortDirection
	Page      int
	PageSize  int
}

// Offset returns the zero-based row offset of the requested page. Offsets
// that do not fit an int saturate at math.MaxInt.
func (q DonorQuery) Offset() int {
	if q.Page < 1 || q.PageSize < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return (q.Page - 1) * q.PageSize
}

// DonorPage is returned by GET /v1/donors.
type DonorPage struct {
	Rows       []DonorProfile `json:"rows"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	SortBy     string         `json:"sort_by"`
	Direction  string         `json:"direction"`
}
