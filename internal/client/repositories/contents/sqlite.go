package contents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, user string, typ models.PassFileType, id int64, version int) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM passfile_contents WHERE user_name = ? AND id = ? AND version = ? AND type = ?`,
		user, id, version, int(typ)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content %d.%d.%d: %w", id, version, typ, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content %d.%d: %w", id, version, err)
	}
	return data, nil
}

// Put upserts a blob. Writing the same (id, version) twice replaces it.
func (r *SQLiteRepository) Put(ctx context.Context, user string, typ models.PassFileType, id int64, version int, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO passfile_contents (user_name, id, version, type, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_name, id, version) DO UPDATE SET type = excluded.type, data = excluded.data
	`, user, id, version, int(typ), data)
	if err != nil {
		return fmt.Errorf("failed to put content %d.%d: %w", id, version, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, user string, id int64, version int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM passfile_contents WHERE user_name = ? AND id = ? AND version = ?`, user, id, version)
	if err != nil {
		return fmt.Errorf("failed to delete content %d.%d: %w", id, version, err)
	}
	return nil
}

func (r *SQLiteRepository) Versions(ctx context.Context, user string, id int64) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT version FROM passfile_contents WHERE user_name = ? AND id = ? ORDER BY version DESC`, user, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list content versions of %d: %w", id, err)
	}
	defer rows.Close()

	versions := make([]int, 0)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return versions, nil
}
