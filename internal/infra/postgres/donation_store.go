package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/infra/resilience"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

const donationColumns = `id, order_reference, donor_email, donor_name, donor_country, amount,
	frequency, payment_method, status, message, subscription_reference, created_at, updated_at`

// DonationStore persists donation records in PostgreSQL. Calls pass through a
// circuit breaker so a failing database is reported fast instead of piling
// up requests; nothing is retried here.
type DonationStore struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

// NewDonationStore constructs a PostgreSQL-backed donation store.
func NewDonationStore(db *sql.DB) *DonationStore {
	return &DonationStore{
		db: db,
		cb: resilience.NewCircuitBreaker("postgres"),
	}
}

func (s *DonationStore) InsertDonation(ctx context.Context, d *domain.Donation) (*domain.Donation, error) {
	return resilience.Execute(s.cb, func() (*domain.Donation, error) {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO donations (order_reference, donor_email, donor_name, donor_country, amount,
				frequency, payment_method, status, message, subscription_reference, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING `+donationColumns,
			nullInt64(d.OrderReference),
			d.DonorEmail,
			d.DonorName,
			nullString(d.DonorCountry),
			d.Amount,
			string(d.Frequency),
			string(d.PaymentMethod),
			string(d.Status),
			nullString(d.Message),
			nullString(d.SubscriptionReference),
			d.CreatedAt.UTC(),
			d.UpdatedAt.UTC(),
		)
		out, err := scanDonation(row)
		if err != nil {
			return nil, &domain.ErrStorage{Op: "insert_donation", Err: err}
		}
		return out, nil
	})
}

func (s *DonationStore) GetDonation(ctx context.Context, id int64) (*domain.Donation, error) {
	out, err := resilience.Execute(s.cb, func() (*domain.Donation, error) {
		return s.getDonation(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &domain.ErrNotFound{Resource: "donation", ID: strconv.FormatInt(id, 10)}
	}
	return out, nil
}

// getDonation returns (nil, nil) for a missing row so the breaker does not
// count lookups of unknown ids as failures.
func (s *DonationStore) getDonation(ctx context.Context, id int64) (*domain.Donation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id)
	out, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.ErrStorage{Op: "get_donation", Err: err}
	}
	return out, nil
}

type statusUpdate struct {
	donation *domain.Donation
	applied  bool
}

func (s *DonationStore) UpdateDonationStatus(ctx context.Context, id int64, from, to domain.DonationStatus, at time.Time) (*domain.Donation, bool, error) {
	res, err := resilience.Execute(s.cb, func() (statusUpdate, error) {
		row := s.db.QueryRowContext(ctx, `
			UPDATE donations SET status = $3, updated_at = $4
			WHERE id = $1 AND status = $2
			RETURNING `+donationColumns,
			id, string(from), string(to), at.UTC(),
		)
		updated, err := scanDonation(row)
		if err == nil {
			return statusUpdate{donation: updated, applied: true}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return statusUpdate{}, &domain.ErrStorage{Op: "update_donation_status", Err: err}
		}
		current, err := s.getDonation(ctx, id)
		if err != nil {
			return statusUpdate{}, err
		}
		return statusUpdate{donation: current}, nil
	})
	if err != nil {
		return nil, false, err
	}
	if res.donation == nil {
		return nil, false, &domain.ErrNotFound{Resource: "donation", ID: strconv.FormatInt(id, 10)}
	}
	return res.donation, res.applied, nil
}

func (s *DonationStore) ListDonations(ctx context.Context, filter domain.DonationFilter) ([]domain.Donation, error) {
	return resilience.Execute(s.cb, func() ([]domain.Donation, error) {
		where, args := whereClause(filter)
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+donationColumns+` FROM donations`+where+` ORDER BY created_at DESC, id DESC`,
			args...)
		if err != nil {
			return nil, &domain.ErrStorage{Op: "list_donations", Err: err}
		}
		defer rows.Close()

		out := make([]domain.Donation, 0)
		for rows.Next() {
			d, err := scanDonation(rows)
			if err != nil {
				return nil, &domain.ErrStorage{Op: "list_donations", Err: err}
			}
			out = append(out, *d)
		}
		if err := rows.Err(); err != nil {
			return nil, &domain.ErrStorage{Op: "list_donations", Err: err}
		}
		return out, nil
	})
}

func (s *DonationStore) SumCompleted(ctx context.Context, filter domain.DonationFilter) (decimal.Decimal, error) {
	filter.Status = domain.StatusCompleted
	return resilience.Execute(s.cb, func() (decimal.Decimal, error) {
		where, args := whereClause(filter)
		var total decimal.Decimal
		err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM donations`+where, args...).Scan(&total)
		if err != nil {
			return decimal.Zero, &domain.ErrStorage{Op: "sum_completed", Err: err}
		}
		return total, nil
	})
}

func (s *DonationStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &domain.ErrStorage{Op: "ping", Err: err}
	}
	return nil
}

// whereClause turns a filter into a WHERE clause with positional parameters.
// Only column names chosen here appear in the query text.
func whereClause(filter domain.DonationFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.From != nil {
		add("created_at >= $%d", filter.From.UTC())
	}
	if filter.To != nil {
		add("created_at < $%d", filter.To.UTC())
	}
	if filter.DonorEmail != "" {
		add("donor_email = $%d", filter.DonorEmail)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDonation(row scanner) (*domain.Donation, error) {
	var (
		d            domain.Donation
		orderRef     sql.NullInt64
		country      sql.NullString
		message      sql.NullString
		subscription sql.NullString
		frequency    string
		method       string
		status       string
	)
	err := row.Scan(
		&d.ID, &orderRef, &d.DonorEmail, &d.DonorName, &country, &d.Amount,
		&frequency, &method, &status, &message, &subscription, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if orderRef.Valid {
		ref := orderRef.Int64
		d.OrderReference = &ref
	}
	d.DonorCountry = strings.TrimSpace(country.String)
	d.Message = message.String
	d.SubscriptionReference = subscription.String
	d.Frequency = domain.Frequency(frequency)
	d.PaymentMethod = domain.PaymentMethod(method)
	d.Status = domain.DonationStatus(status)
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
