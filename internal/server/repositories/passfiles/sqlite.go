package passfiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/dbx"
	"github.com/dmitrijs2005/passkeeper/internal/server/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const columns = `id, user_id, type, name, color, created_on, info_changed_on, version_changed_on, version`

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.PassFile, error) {
	pf := &models.PassFile{}
	var created, infoChanged, versionChanged int64
	err := s.Scan(&pf.ID, &pf.UserID, &pf.Type, &pf.Name, &pf.Color, &created, &infoChanged, &versionChanged, &pf.Version)
	if err != nil {
		return nil, err
	}
	pf.CreatedOn = time.Unix(0, created).UTC()
	pf.InfoChangedOn = time.Unix(0, infoChanged).UTC()
	pf.VersionChangedOn = time.Unix(0, versionChanged).UTC()
	return pf, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID int64, typ int) ([]*models.PassFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM passfiles WHERE user_id = ? AND type = ? ORDER BY id`, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.PassFile, 0)
	for rows.Next() {
		pf, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, pf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, id int64) (*models.PassFile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM passfiles WHERE user_id = ? AND id = ?`, userID, id)
	pf, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("passfile %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return pf, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, pf *models.PassFile) error {
	query := `INSERT INTO passfiles (user_id, type, name, color, created_on, info_changed_on, version_changed_on, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		pf.UserID, pf.Type, pf.Name, pf.Color,
		pf.CreatedOn.UTC().UnixNano(), pf.InfoChangedOn.UTC().UnixNano(), pf.VersionChangedOn.UTC().UnixNano(),
		pf.Version).Scan(&pf.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateInfo(ctx context.Context, pf *models.PassFile) error {
	return r.update(ctx,
		`UPDATE passfiles SET name = ?, color = ?, info_changed_on = ? WHERE user_id = ? AND id = ?`,
		pf.ID, pf.Name, pf.Color, pf.InfoChangedOn.UTC().UnixNano(), pf.UserID, pf.ID)
}

func (r *SQLiteRepository) UpdateVersion(ctx context.Context, pf *models.PassFile) error {
	return r.update(ctx,
		`UPDATE passfiles SET version = ?, version_changed_on = ? WHERE user_id = ? AND id = ?`,
		pf.ID, pf.Version, pf.VersionChangedOn.UTC().UnixNano(), pf.UserID, pf.ID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM passfile_contents WHERE passfile_id IN (SELECT id FROM passfiles WHERE user_id = ? AND id = ?)`,
		userID, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.update(ctx, `DELETE FROM passfiles WHERE user_id = ? AND id = ?`, id, userID, id)
}

func (r *SQLiteRepository) update(ctx context.Context, query string, id int64, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("passfile %d: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetContent(ctx context.Context, id int64, version int) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM passfile_contents WHERE passfile_id = ? AND version = ?`, id, version).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("passfile %d version %d: %w", id, version, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return data, nil
}

func (r *SQLiteRepository) PutContent(ctx context.Context, id int64, version int, data []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO passfile_contents (passfile_id, version, data) VALUES (?, ?, ?)`, id, version, data)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
