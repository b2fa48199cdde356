package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openCounterDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE counters (name TEXT PRIMARY KEY, n INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO counters(name, n) VALUES ('local_id', 0)`)
	require.NoError(t, err)
	return db
}

func counter(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.QueryRow(`SELECT n FROM counters WHERE name = 'local_id'`).Scan(&n))
	return n
}

func decrement(ctx context.Context, tx DBTX) (int64, error) {
	if _, err := tx.ExecContext(ctx, `UPDATE counters SET n = n - 1 WHERE name = 'local_id'`); err != nil {
		return 0, err
	}
	var n int64
	err := tx.QueryRowContext(ctx, `SELECT n FROM counters WHERE name = 'local_id'`).Scan(&n)
	return n, err
}

func TestWithTxValue_CommitsAndReturnsValue(t *testing.T) {
	db := openCounterDB(t)
	ctx := context.Background()

	for want := int64(-1); want >= -3; want-- {
		got, err := WithTxValue(ctx, db, nil, decrement)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, int64(-3), counter(t, db))
}

func TestWithTxValue_ErrorRollsBackAndReturnsZero(t *testing.T) {
	db := openCounterDB(t)
	failed := errors.New("index write failed")

	got, err := WithTxValue(context.Background(), db, nil, func(ctx context.Context, tx DBTX) (int64, error) {
		n, err := decrement(ctx, tx)
		require.NoError(t, err)
		require.Equal(t, int64(-1), n)
		return n, failed
	})
	assert.ErrorIs(t, err, failed)
	assert.Zero(t, got)
	assert.Equal(t, int64(0), counter(t, db))
}

func TestWithTx_PanicRollsBackAndPropagates(t *testing.T) {
	db := openCounterDB(t)

	assert.PanicsWithValue(t, "torn write", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			_, err := decrement(ctx, tx)
			require.NoError(t, err)
			panic("torn write")
		})
	})
	assert.Equal(t, int64(0), counter(t, db))
}

func TestWithTx_Failures(t *testing.T) {
	fnErr := errors.New("fn failed")

	tests := []struct {
		name   string
		expect func(m sqlmock.Sqlmock)
		fn     func(ctx context.Context, tx DBTX) error
		is     []error
		substr string
	}{
		{
			name:   "begin fails",
			expect: func(m sqlmock.Sqlmock) { m.ExpectBegin().WillReturnError(sql.ErrConnDone) },
			fn:     func(context.Context, DBTX) error { return nil },
			is:     []error{sql.ErrConnDone},
			substr: "begin tx",
		},
		{
			name: "commit fails",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectCommit().WillReturnError(errors.New("disk full"))
			},
			fn:     func(context.Context, DBTX) error { return nil },
			substr: "commit tx: disk full",
		},
		{
			name: "rollback failure is joined",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback().WillReturnError(errors.New("conn reset"))
			},
			fn:     func(context.Context, DBTX) error { return fnErr },
			is:     []error{fnErr},
			substr: "rollback: conn reset",
		},
		{
			name: "clean rollback keeps fn error only",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback()
			},
			fn: func(context.Context, DBTX) error { return fnErr },
			is: []error{fnErr},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.expect(mock)

			err = WithTx(context.Background(), db, nil, tt.fn)
			require.Error(t, err)
			for _, target := range tt.is {
				assert.ErrorIs(t, err, target)
			}
			if tt.substr != "" {
				assert.Contains(t, err.Error(), tt.substr)
			} else {
				assert.Equal(t, fnErr.Error(), err.Error())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
