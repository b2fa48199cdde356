package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) LocalStore

func newSQLite(t *testing.T) LocalStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newBolt(t *testing.T) LocalStore {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "passkeeper.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var backends = map[string]storeFactory{
	"sqlite": newSQLite,
	"bolt":   newBolt,
}

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func info(id int64, typ models.PassFileType, name string) models.Info {
	return models.Info{
		ID: id, Type: typ, Name: name,
		CreatedOn: t0, InfoChangedOn: t0, VersionChangedOn: t0, Version: 1,
	}
}

func TestLocalStore_ListRoundTrip(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			empty, err := s.LoadList(ctx, models.PassFileTypePwd, "alice")
			require.NoError(t, err)
			assert.Empty(t, empty)

			a := info(4, models.PassFileTypePwd, "bank")
			a.Origin = &models.ChangeStamps{InfoChangedOn: t0, VersionChangedOn: t0, Version: 1}
			b := info(-1, models.PassFileTypePwd, "mail")
			require.NoError(t, s.SaveList(ctx, models.PassFileTypePwd, []models.Info{a, b}, "alice"))
			require.NoError(t, s.SaveList(ctx, models.PassFileTypeTxt, []models.Info{info(9, models.PassFileTypeTxt, "notes")}, "alice"))

			got, err := s.LoadList(ctx, models.PassFileTypePwd, "alice")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, int64(-1), got[0].ID)
			assert.Equal(t, "bank", got[1].Name)
			require.NotNil(t, got[1].Origin)
			assert.True(t, got[1].VersionChangedOn.Equal(t0))

			// full replace drops "bank" and keeps the txt index
			require.NoError(t, s.SaveList(ctx, models.PassFileTypePwd, []models.Info{b}, "alice"))
			got, err = s.LoadList(ctx, models.PassFileTypePwd, "alice")
			require.NoError(t, err)
			require.Len(t, got, 1)

			txt, err := s.LoadList(ctx, models.PassFileTypeTxt, "alice")
			require.NoError(t, err)
			assert.Len(t, txt, 1)

			other, err := s.LoadList(ctx, models.PassFileTypePwd, "bob")
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestLocalStore_ContentVersions(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			for v := 1; v <= 3; v++ {
				require.NoError(t, s.SaveEncryptedContent(ctx, models.PassFileTypeTxt, 12, v, []byte{byte(v)}, "alice"))
			}
			require.NoError(t, s.SaveEncryptedContent(ctx, models.PassFileTypeTxt, 1, 1, []byte{0xff}, "alice"))

			data, err := s.LoadEncryptedContent(ctx, models.PassFileTypeTxt, 12, 2, "alice")
			require.NoError(t, err)
			assert.Equal(t, []byte{2}, data)

			vs, err := s.GetVersions(ctx, 12, "alice")
			require.NoError(t, err)
			assert.Equal(t, []int{3, 2, 1}, vs)

			require.NoError(t, s.DeleteEncryptedContent(ctx, 12, 2, "alice"))
			vs, err = s.GetVersions(ctx, 12, "alice")
			require.NoError(t, err)
			assert.Equal(t, []int{3, 1}, vs)

			_, err = s.LoadEncryptedContent(ctx, models.PassFileTypeTxt, 12, 2, "alice")
			assert.ErrorIs(t, err, common.ErrStorage)
			assert.ErrorIs(t, err, common.ErrNotFound)

			vs, err = s.GetVersions(ctx, 1, "alice")
			require.NoError(t, err)
			assert.Equal(t, []int{1}, vs)
		})
	}
}

func TestLocalStore_NextLocalID(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			for _, want := range []int64{-1, -2, -3} {
				id, err := s.NextLocalID(ctx, "alice")
				require.NoError(t, err)
				assert.Equal(t, want, id)
			}

			id, err := s.NextLocalID(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, int64(-1), id)
		})
	}
}

func TestBoltStore_CounterSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.bolt")
	ctx := context.Background()

	s, err := OpenBolt(path)
	require.NoError(t, err)
	_, err = s.NextLocalID(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()

	id, err := s.NextLocalID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(-2), id)
}

func TestSQLiteStore_SaveListRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM passfiles").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	s := NewSQLiteStore(db)
	err = s.SaveList(context.Background(), models.PassFileTypePwd, []models.Info{info(1, models.PassFileTypePwd, "x")}, "alice")
	require.ErrorIs(t, err, common.ErrStorage)
	assert.Contains(t, err.Error(), "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInitDatabase_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	db, err := InitDatabase(ctx, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"goose_db_version", "metadata", "passfiles", "passfile_contents"} {
		var n int
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	// idempotent
	require.NoError(t, RunMigrations(ctx, db))
}
