package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *int64:
			*p = r.values[i].(int64)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type fakeDB struct {
	execSQL  []string
	querySQL string
	args     []any
	row      fakeRow
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.querySQL = sql
	f.args = args
	return f.row
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, New(db).EnsureSchema(context.Background()))
	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "CREATE TABLE IF NOT EXISTS payment_sessions")
}

func TestRecordSession(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{values: []any{created}}}

	got, err := New(db).RecordSession(context.Background(), RecordSessionParams{
		Recipient:        "0xabc",
		DestinationChain: "STARKNET",
		Token:            "USDC",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, "0", got.Amount)
	assert.Equal(t, created, got.CreatedAt)
	assert.True(t, strings.Contains(db.querySQL, "INSERT INTO payment_sessions"))
	require.Len(t, db.args, 5)
	assert.Equal(t, got.ID, db.args[0])
	assert.Equal(t, "0xabc", db.args[1])
}

func TestRecordSessionError(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: errors.New("connection reset")}}
	_, err := New(db).RecordSession(context.Background(), RecordSessionParams{Recipient: "0xabc"})
	assert.EqualError(t, err, "connection reset")
}

func TestCountSessionsByRecipient(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{int64(3)}}}
	n, err := New(db).CountSessionsByRecipient(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []any{"0xabc"}, db.args)
}
