/**
 * @description
 * This file implements the session ledger: an append-only Postgres table holding
 * one row per payment session token the server handed out.
 *
 * Key features:
 * - Querier Shape: `Queries` wraps any `DBTX` (a pgxpool.Pool, a pgx.Conn or a
 *   transaction), so callers and tests can swap the connection.
 * - Schema Bootstrap: `EnsureSchema` creates the table on startup; there is no
 *   separate migration step for a single table.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: Postgres driver
 * - github.com/google/uuid: Row identifiers
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx shared by pools, connections and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ledger records issued payment sessions.
type Ledger interface {
	EnsureSchema(ctx context.Context) error
	RecordSession(ctx context.Context, arg RecordSessionParams) (PaymentSession, error)
	CountSessionsByRecipient(ctx context.Context, recipient string) (int64, error)
}

// PaymentSession is one ledger row.
type PaymentSession struct {
	ID               uuid.UUID `json:"id"`
	Recipient        string    `json:"recipient"`
	DestinationChain string    `json:"destination_chain"`
	Token            string    `json:"token"`
	Amount           string    `json:"amount"`
	CreatedAt        time.Time `json:"created_at"`
}

// RecordSessionParams are the inputs of RecordSession.
type RecordSessionParams struct {
	Recipient        string
	DestinationChain string
	Token            string
	Amount           string
}

// Queries implements Ledger on top of a DBTX.
type Queries struct {
	db DBTX
}

// New returns a Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const createSchema = `
CREATE TABLE IF NOT EXISTS payment_sessions (
    id                UUID PRIMARY KEY,
    recipient         TEXT NOT NULL,
    destination_chain TEXT NOT NULL,
    token             TEXT NOT NULL,
    amount            TEXT NOT NULL DEFAULT '0',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS payment_sessions_recipient_idx ON payment_sessions (recipient);
`

// EnsureSchema creates the ledger table and its index if they do not exist.
func (q *Queries) EnsureSchema(ctx context.Context) error {
	_, err := q.db.Exec(ctx, createSchema)
	return err
}

const recordSession = `
INSERT INTO payment_sessions (id, recipient, destination_chain, token, amount)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at
`

// RecordSession inserts a ledger row with a freshly generated id.
func (q *Queries) RecordSession(ctx context.Context, arg RecordSessionParams) (PaymentSession, error) {
	amount := arg.Amount
	if amount == "" {
		amount = "0"
	}
	row := PaymentSession{
		ID:               uuid.New(),
		Recipient:        arg.Recipient,
		DestinationChain: arg.DestinationChain,
		Token:            arg.Token,
		Amount:           amount,
	}
	err := q.db.QueryRow(ctx, recordSession,
		row.ID, row.Recipient, row.DestinationChain, row.Token, row.Amount,
	).Scan(&row.CreatedAt)
	if err != nil {
		return PaymentSession{}, err
	}
	return row, nil
}

const countSessionsByRecipient = `
SELECT count(*) FROM payment_sessions WHERE recipient = $1
`

// CountSessionsByRecipient returns how many sessions were issued to recipient.
func (q *Queries) CountSessionsByRecipient(ctx context.Context, recipient string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countSessionsByRecipient, recipient).Scan(&n)
	return n, err
}
