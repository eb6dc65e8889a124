package postgres

import (
	"testing"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
)

func TestWhereClause_Empty(t *testing.T) {
	where, args := whereClause(domain.DonationFilter{})
	if where != "" || len(args) != 0 {
		t.Errorf("expected no clause, got %q %v", where, args)
	}
}

func TestWhereClause_AllConstraints(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	filter := domain.DonationFilter{
		From:       &from,
		To:         &to,
		DonorEmail: "a@x.com' OR '1'='1",
		Status:     domain.StatusCompleted,
	}

	where, args := whereClause(filter)

	want := " WHERE created_at >= $1 AND created_at < $2 AND donor_email = $3 AND status = $4"
	if where != want {
		t.Errorf("unexpected clause:\n got %q\nwant %q", where, want)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
	if args[2] != filter.DonorEmail {
		t.Errorf("expected email passed as a parameter, got %v", args[2])
	}
}
