// Package postgres implements the donation record store on PostgreSQL
// through database/sql and the lib/pq driver. Every caller-supplied value
// travels as a $n parameter.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open returns a pooled connection handle. It does not contact the server;
// callers ping it (with retry) during bootstrap.
func Open(dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS donations (
    id                     BIGSERIAL PRIMARY KEY,
    order_reference        BIGINT,
    donor_email            VARCHAR(100) NOT NULL,
    donor_name             VARCHAR(255) NOT NULL,
    donor_country          CHAR(2),
    amount                 NUMERIC(12,2) NOT NULL CHECK (amount > 0),
    frequency              VARCHAR(20) NOT NULL DEFAULT 'once'
                           CHECK (frequency IN ('once', 'monthly')),
    payment_method         VARCHAR(20) NOT NULL
                           CHECK (payment_method IN ('paypal', 'card', 'bank_transfer')),
    status                 VARCHAR(20) NOT NULL DEFAULT 'pending'
                           CHECK (status IN ('pending', 'completed', 'failed')),
    message                TEXT,
    subscription_reference VARCHAR(100),
    created_at             TIMESTAMPTZ NOT NULL,
    updated_at             TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_donations_donor_email ON donations (donor_email);
CREATE INDEX IF NOT EXISTS idx_donations_status ON donations (status);
CREATE INDEX IF NOT EXISTS idx_donations_frequency ON donations (frequency);
CREATE INDEX IF NOT EXISTS idx_donations_created_at ON donations (created_at DESC, id DESC);
`

// Migrate creates the donations table and its indexes if they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate donations schema: %w", err)
	}
	return nil
}
