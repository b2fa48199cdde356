package passfiles

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE passfiles (
    user_name TEXT NOT NULL, id INTEGER NOT NULL, type INTEGER NOT NULL, name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '', created_on INTEGER NOT NULL, info_changed_on INTEGER NOT NULL,
    version_changed_on INTEGER NOT NULL, version INTEGER NOT NULL, deleted_on INTEGER NULL,
    origin_info_changed_on INTEGER NULL, origin_version_changed_on INTEGER NULL,
    origin_version INTEGER NULL, mark INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (user_name, id)
);`)
	require.NoError(t, err)
	return db
}

var t0 = time.Date(2024, 2, 3, 4, 5, 6, 789, time.UTC)

func sampleInfo(id int64, typ models.PassFileType) models.Info {
	return models.Info{
		ID: id, Type: typ, Name: "n", Color: "#fff",
		CreatedOn: t0, InfoChangedOn: t0.Add(time.Second), VersionChangedOn: t0.Add(2 * time.Second),
		Version: 3,
	}
}

func TestReplaceType_RoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	del := t0.Add(time.Hour)
	a := sampleInfo(7, models.PassFileTypePwd)
	a.DeletedOn = &del
	a.Origin = &models.ChangeStamps{InfoChangedOn: t0, VersionChangedOn: t0, Version: 2}
	a.Mark = models.MarkNeedsMerge
	b := sampleInfo(-1, models.PassFileTypePwd)

	require.NoError(t, r.ReplaceType(ctx, "alice", models.PassFileTypePwd, []models.Info{a, b}))

	got, err := r.ListByType(ctx, "alice", models.PassFileTypePwd)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(-1), got[0].ID)
	assert.Nil(t, got[0].Origin)
	assert.Nil(t, got[0].DeletedOn)

	g := got[1]
	assert.Equal(t, int64(7), g.ID)
	assert.Equal(t, 3, g.Version)
	assert.True(t, g.CreatedOn.Equal(a.CreatedOn))
	assert.True(t, g.VersionChangedOn.Equal(a.VersionChangedOn))
	require.NotNil(t, g.DeletedOn)
	assert.True(t, g.DeletedOn.Equal(del))
	require.NotNil(t, g.Origin)
	assert.Equal(t, 2, g.Origin.Version)
	assert.Equal(t, models.MarkNeedsMerge, g.Mark)
}

func TestReplaceType_ScopedByTypeAndUser(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceType(ctx, "alice", models.PassFileTypePwd, []models.Info{sampleInfo(1, models.PassFileTypePwd)}))
	require.NoError(t, r.ReplaceType(ctx, "alice", models.PassFileTypeTxt, []models.Info{sampleInfo(2, models.PassFileTypeTxt)}))
	require.NoError(t, r.ReplaceType(ctx, "bob", models.PassFileTypePwd, []models.Info{sampleInfo(3, models.PassFileTypePwd)}))

	// replacing alice's pwd list leaves her txt list and bob alone
	require.NoError(t, r.ReplaceType(ctx, "alice", models.PassFileTypePwd, nil))

	pwd, err := r.ListByType(ctx, "alice", models.PassFileTypePwd)
	require.NoError(t, err)
	assert.Empty(t, pwd)

	txt, err := r.ListByType(ctx, "alice", models.PassFileTypeTxt)
	require.NoError(t, err)
	assert.Len(t, txt, 1)

	bob, err := r.ListByType(ctx, "bob", models.PassFileTypePwd)
	require.NoError(t, err)
	assert.Len(t, bob, 1)
}

func TestReplaceType_RejectsForeignType(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	err := r.ReplaceType(context.Background(), "alice", models.PassFileTypePwd,
		[]models.Info{sampleInfo(1, models.PassFileTypeTxt)})
	require.Error(t, err)
}

func TestListByType_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())

	_, err := r.ListByType(context.Background(), "alice", models.PassFileTypePwd)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to select passfiles")
}
