// Package memory provides in-process implementations of the ledger's
// storage ports. They back local development and the service tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// DonationStore keeps donation records in a slice guarded by a mutex.
type DonationStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]domain.Donation
}

// NewDonationStore returns an empty store.
func NewDonationStore() *DonationStore {
	return &DonationStore{rows: make(map[int64]domain.Donation)}
}

func (s *DonationStore) InsertDonation(_ context.Context, d *domain.Donation) (*domain.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	row := cloneDonation(*d)
	row.ID = s.nextID
	s.rows[row.ID] = row

	out := cloneDonation(row)
	return &out, nil
}

func (s *DonationStore) GetDonation(_ context.Context, id int64) (*domain.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "donation", ID: strconv.FormatInt(id, 10)}
	}
	out := cloneDonation(row)
	return &out, nil
}

func (s *DonationStore) UpdateDonationStatus(_ context.Context, id int64, from, to domain.DonationStatus, at time.Time) (*domain.Donation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, false, &domain.ErrNotFound{Resource: "donation", ID: strconv.FormatInt(id, 10)}
	}
	if row.Status != from {
		out := cloneDonation(row)
		return &out, false, nil
	}
	row.Status = to
	row.UpdatedAt = at
	s.rows[id] = row

	out := cloneDonation(row)
	return &out, true, nil
}

func (s *DonationStore) ListDonations(_ context.Context, filter domain.DonationFilter) ([]domain.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Donation, 0, len(s.rows))
	for _, row := range s.rows {
		if filter.Matches(&row) {
			out = append(out, cloneDonation(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *DonationStore) SumCompleted(_ context.Context, filter domain.DonationFilter) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter.Status = domain.StatusCompleted
	total := decimal.Zero
	for _, row := range s.rows {
		if filter.Matches(&row) {
			total = total.Add(row.Amount)
		}
	}
	return total, nil
}

func (s *DonationStore) Ping(context.Context) error { return nil }

func cloneDonation(d domain.Donation) domain.Donation {
	if d.OrderReference != nil {
		ref := *d.OrderReference
		d.OrderReference = &ref
	}
	return d
}
