// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// DonationStore persists donation records.
// Implemented by the Postgres adapter and the in-memory adapter.
type DonationStore interface {
	// InsertDonation stores d, assigns its ID and returns the stored copy.
	InsertDonation(ctx context.Context, d *domain.Donation) (*domain.Donation, error)

	// GetDonation returns *domain.ErrNotFound when id does not exist.
	GetDonation(ctx context.Context, id int64) (*domain.Donation, error)

	// UpdateDonationStatus moves a record from `from` to `to` only if it is
	// still in `from`. ok is false when the record was not in `from`.
	UpdateDonationStatus(ctx context.Context, id int64, from, to domain.DonationStatus, at time.Time) (updated *domain.Donation, ok bool, err error)

	// ListDonations returns matching records ordered by created_at desc, id desc.
	ListDonations(ctx context.Context, filter domain.DonationFilter) ([]domain.Donation, error)

	// SumCompleted sums amounts of completed records inside the filter's dates.
	SumCompleted(ctx context.Context, filter domain.DonationFilter) (decimal.Decimal, error)

	Ping(ctx context.Context) error
}

// SettingsStore is the key/value settings backend. Values are raw strings;
// typing is applied by the caller against the declared schema.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (value string, found bool, err error)
	AllSettings(ctx context.Context) (map[string]string, error)

	// SaveSettings writes values and returns how many keys changed.
	SaveSettings(ctx context.Context, values map[string]string) (int, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Purge()
}

// ExportArchiver stores a serialized export outside the process.
type ExportArchiver interface {
	Archive(ctx context.Context, name, contentType string, body []byte) (location string, err error)
}
