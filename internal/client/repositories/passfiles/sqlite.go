package passfiles

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/dbx"
)

// SQLiteRepository implements Repository over a DBTX. Timestamps are stored
// as UTC unix nanoseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `id, type, name, color, created_on, info_changed_on, version_changed_on, version,
	deleted_on, origin_info_changed_on, origin_version_changed_on, origin_version, mark`

func (r *SQLiteRepository) ListByType(ctx context.Context, user string, typ models.PassFileType) ([]models.Info, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM passfiles WHERE user_name = ? AND type = ? ORDER BY id`,
		user, int(typ))
	if err != nil {
		return nil, fmt.Errorf("failed to select passfiles: %w", err)
	}
	defer rows.Close()

	result := make([]models.Info, 0)
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan passfile row: %w", err)
		}
		result = append(result, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate passfile rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) ReplaceType(ctx context.Context, user string, typ models.PassFileType, list []models.Info) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM passfiles WHERE user_name = ? AND type = ?`, user, int(typ)); err != nil {
		return fmt.Errorf("failed to clear passfiles: %w", err)
	}

	const query = `INSERT INTO passfiles (user_name, id, type, name, color, created_on, info_changed_on,
		version_changed_on, version, deleted_on, origin_info_changed_on, origin_version_changed_on,
		origin_version, mark) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, i := range list {
		if i.Type != typ {
			return fmt.Errorf("passfile %d has type %s, expected %s", i.ID, i.Type, typ)
		}

		var originInfo, originVersionOn, originVersion sql.NullInt64
		if i.Origin != nil {
			originInfo = nullTime(&i.Origin.InfoChangedOn)
			originVersionOn = nullTime(&i.Origin.VersionChangedOn)
			originVersion = sql.NullInt64{Int64: int64(i.Origin.Version), Valid: true}
		}

		_, err := r.db.ExecContext(ctx, query,
			user, i.ID, int(i.Type), i.Name, i.Color,
			toNanos(i.CreatedOn), toNanos(i.InfoChangedOn), toNanos(i.VersionChangedOn), i.Version,
			nullTime(i.DeletedOn), originInfo, originVersionOn, originVersion, int(i.Mark))
		if err != nil {
			return fmt.Errorf("failed to insert passfile %d: %w", i.ID, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(s scanner) (models.Info, error) {
	var (
		i                                         models.Info
		typ, version, mark                        int
		created, infoChanged, versionChanged      int64
		deleted, originInfo, originVersionChanged sql.NullInt64
		originVersion                             sql.NullInt64
	)
	err := s.Scan(&i.ID, &typ, &i.Name, &i.Color, &created, &infoChanged, &versionChanged, &version,
		&deleted, &originInfo, &originVersionChanged, &originVersion, &mark)
	if err != nil {
		return models.Info{}, err
	}

	i.Type = models.PassFileType(typ)
	i.Version = version
	i.Mark = models.Mark(mark)
	i.CreatedOn = fromNanos(created)
	i.InfoChangedOn = fromNanos(infoChanged)
	i.VersionChangedOn = fromNanos(versionChanged)
	if deleted.Valid {
		d := fromNanos(deleted.Int64)
		i.DeletedOn = &d
	}
	if originVersion.Valid {
		i.Origin = &models.ChangeStamps{
			InfoChangedOn:    fromNanos(originInfo.Int64),
			VersionChangedOn: fromNanos(originVersionChanged.Int64),
			Version:          int(originVersion.Int64),
		}
	}
	return i, nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}
