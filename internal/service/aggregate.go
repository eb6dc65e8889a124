package service

import (
	"sort"
	"strings"

	"github.com/boddenberg/donations-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// donorAccumulator collects one donor's completed records.
type donorAccumulator struct {
	profile domain.DonorProfile
	names   []string
}

// aggregateDonors folds completed records into one profile per email.
// records must be ordered newest first, which makes the first record seen
// for a donor the source of its display name.
func aggregateDonors(records []domain.Donation) []*donorAccumulator {
	byEmail := make(map[string]*donorAccumulator)
	order := make([]string, 0)

	for i := range records {
		r := &records[i]
		if r.Status != domain.StatusCompleted {
			continue
		}
		acc, ok := byEmail[r.DonorEmail]
		if !ok {
			acc = &donorAccumulator{profile: domain.DonorProfile{
				DonorEmail:      r.DonorEmail,
				DonorName:       r.DonorName,
				TotalDonated:    decimal.Zero,
				FirstDonationAt: r.CreatedAt,
				LastDonationAt:  r.CreatedAt,
			}}
			byEmail[r.DonorEmail] = acc
			order = append(order, r.DonorEmail)
		}

		p := &acc.profile
		p.DonationCount++
		p.TotalDonated = p.TotalDonated.Add(r.Amount)
		if r.IsRecurring() {
			p.RecurringCount++
		}
		if r.CreatedAt.Before(p.FirstDonationAt) {
			p.FirstDonationAt = r.CreatedAt
		}
		if r.CreatedAt.After(p.LastDonationAt) {
			p.LastDonationAt = r.CreatedAt
		}
		if p.DonorCountry == "" && r.DonorCountry != "" {
			p.DonorCountry = r.DonorCountry
		}
		acc.names = append(acc.names, strings.ToLower(r.DonorName))
	}

	out := make([]*donorAccumulator, 0, len(order))
	for _, email := range order {
		acc := byEmail[email]
		acc.profile.AvgDonation = average(acc.profile.TotalDonated, acc.profile.DonationCount)
		out = append(out, acc)
	}
	return out
}

// matches reports whether term (already lower-cased) occurs in the donor's
// email or in any name it donated under.
func (a *donorAccumulator) matches(term string) bool {
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(a.profile.DonorEmail), term) {
		return true
	}
	for _, n := range a.names {
		if strings.Contains(n, term) {
			return true
		}
	}
	return false
}

// average returns total/count rounded to cents, or zero for no records.
func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count))).Round(2)
}

// compareDonors orders by column ascending with donor_email as the final
// tie-break, so the order is total and desc is its exact reverse.
func compareDonors(a, b *domain.DonorProfile, col domain.DonorSortColumn) int {
	var c int
	switch col {
	case domain.SortDonorName:
		c = strings.Compare(strings.ToLower(a.DonorName), strings.ToLower(b.DonorName))
	case domain.SortDonationCount:
		c = a.DonationCount - b.DonationCount
	case domain.SortLastDonationAt:
		c = a.LastDonationAt.Compare(b.LastDonationAt)
	case domain.SortDonorEmail:
		c = 0
	default:
		c = a.TotalDonated.Cmp(b.TotalDonated)
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a.DonorEmail, b.DonorEmail)
}

func sortDonors(rows []domain.DonorProfile, col domain.DonorSortColumn, dir domain.SortDirection) {
	sort.Slice(rows, func(i, j int) bool {
		if dir == domain.SortAsc {
			return compareDonors(&rows[i], &rows[j], col) < 0
		}
		return compareDonors(&rows[j], &rows[i], col) < 0
	})
}

// breakdown groups completed records by key, ordered by total desc then key.
func breakdown(records []domain.Donation, key func(*domain.Donation) string) []domain.BreakdownRow {
	idx := make(map[string]int)
	rows := make([]domain.BreakdownRow, 0)
	for i := range records {
		k := key(&records[i])
		j, ok := idx[k]
		if !ok {
			j = len(rows)
			idx[k] = j
			rows = append(rows, domain.BreakdownRow{Key: k, Total: decimal.Zero})
		}
		rows[j].Count++
		rows[j].Total = rows[j].Total.Add(records[i].Amount)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].Total.Cmp(rows[j].Total); c != 0 {
			return c > 0
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

func sortMonths(rows []domain.MonthBucket) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
}
