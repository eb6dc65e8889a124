package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/infra/memory"

	"github.com/shopspring/decimal"
)

// --- Fakes ---

// failingStore fails every read with a storage error.
type failingStore struct {
	*memory.DonationStore
}

func (f *failingStore) ListDonations(context.Context, domain.DonationFilter) ([]domain.Donation, error) {
	return nil, &domain.ErrStorage{Op: "list_donations", Err: errors.New("connection refused")}
}

func (f *failingStore) UpdateDonationStatus(context.Context, int64, domain.DonationStatus, domain.DonationStatus, time.Time) (*domain.Donation, bool, error) {
	return nil, false, &domain.ErrStorage{Op: "update_donation_status", Err: errors.New("connection refused")}
}

// failingSettings fails every read.
type failingSettings struct{}

func (failingSettings) GetSetting(context.Context, string) (string, bool, error) {
	return "", false, errors.New("redis down")
}

func (failingSettings) AllSettings(context.Context) (map[string]string, error) {
	return nil, errors.New("redis down")
}

func (failingSettings) SaveSettings(context.Context, map[string]string) (int, error) {
	return 0, errors.New("redis down")
}

// --- Helpers ---

type seed struct {
	email     string
	name      string
	country   string
	amount    string
	frequency domain.Frequency
	method    domain.PaymentMethod
	status    domain.DonationStatus
	at        time.Time
}

func seedStore(t *testing.T, rows ...seed) *memory.DonationStore {
	t.Helper()
	store := memory.NewDonationStore()
	for _, r := range rows {
		if r.name == "" {
			r.name = "Donor " + r.email
		}
		if r.frequency == "" {
			r.frequency = domain.FrequencyOnce
		}
		if r.method == "" {
			r.method = domain.PaymentCard
		}
		if r.status == "" {
			r.status = domain.StatusCompleted
		}
		if r.at.IsZero() {
			r.at = time.Now().UTC().Add(-time.Hour)
		}
		_, err := store.InsertDonation(context.Background(), &domain.Donation{
			DonorEmail:    r.email,
			DonorName:     r.name,
			DonorCountry:  r.country,
			Amount:        decimal.RequireFromString(r.amount),
			Frequency:     r.frequency,
			PaymentMethod: r.method,
			Status:        r.status,
			CreatedAt:     r.at,
			UpdatedAt:     r.at,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
