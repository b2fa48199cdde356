package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/client/repositories/contents"
	"github.com/dmitrijs2005/passkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/passkeeper/internal/client/repositories/passfiles"
	"github.com/dmitrijs2005/passkeeper/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the SQLite database at dsn and
// migrates it to the latest schema.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SQLiteStore is the LocalStore backed by database/sql and the SQLite
// repositories.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite is InitDatabase followed by NewSQLiteStore.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := InitDatabase(ctx, dsn)
	if err != nil {
		return nil, wrapErr("open sqlite", err)
	}
	return NewSQLiteStore(db), nil
}

// DB exposes the handle for services sharing the database (offline auth).
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) LoadList(ctx context.Context, typ models.PassFileType, user string) ([]models.Info, error) {
	list, err := passfiles.NewSQLiteRepository(s.db).ListByType(ctx, user, typ)
	return list, wrapErr("load list", err)
}

func (s *SQLiteStore) SaveList(ctx context.Context, typ models.PassFileType, list []models.Info, user string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return passfiles.NewSQLiteRepository(tx).ReplaceType(ctx, user, typ, list)
	})
	return wrapErr("save list", err)
}

func (s *SQLiteStore) LoadEncryptedContent(ctx context.Context, typ models.PassFileType, id int64, version int, user string) ([]byte, error) {
	data, err := contents.NewSQLiteRepository(s.db).Get(ctx, user, typ, id, version)
	return data, wrapErr("load content", err)
}

func (s *SQLiteStore) SaveEncryptedContent(ctx context.Context, typ models.PassFileType, id int64, version int, data []byte, user string) error {
	return wrapErr("save content", contents.NewSQLiteRepository(s.db).Put(ctx, user, typ, id, version, data))
}

func (s *SQLiteStore) DeleteEncryptedContent(ctx context.Context, id int64, version int, user string) error {
	return wrapErr("delete content", contents.NewSQLiteRepository(s.db).Delete(ctx, user, id, version))
}

func (s *SQLiteStore) GetVersions(ctx context.Context, id int64, user string) ([]int, error) {
	versions, err := contents.NewSQLiteRepository(s.db).Versions(ctx, user, id)
	return versions, wrapErr("get versions", err)
}

func (s *SQLiteStore) NextLocalID(ctx context.Context, user string) (int64, error) {
	id, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (int64, error) {
		return metadata.NewSQLiteRepository(tx).Decrement(ctx, metadata.LocalIDCounterKey(user))
	})
	return id, wrapErr("next local id", err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
