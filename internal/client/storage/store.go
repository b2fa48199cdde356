// Package storage implements the local passfile store: the per-user index
// of Info records, the versioned encrypted content blobs, and the durable
// counter that mints local ids.
//
// Two backends satisfy LocalStore: SQLiteStore (the default, schema managed
// by goose) and BoltStore (a single bbolt file). Every error they return
// wraps common.ErrStorage.
package storage

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/common"
)

// LocalStore is the persistence contract of the passfile engine.
type LocalStore interface {
	// LoadList returns the committed index of one passfile type.
	LoadList(ctx context.Context, typ models.PassFileType, user string) ([]models.Info, error)

	// SaveList atomically replaces the index of one passfile type.
	SaveList(ctx context.Context, typ models.PassFileType, list []models.Info, user string) error

	LoadEncryptedContent(ctx context.Context, typ models.PassFileType, id int64, version int, user string) ([]byte, error)
	SaveEncryptedContent(ctx context.Context, typ models.PassFileType, id int64, version int, data []byte, user string) error
	DeleteEncryptedContent(ctx context.Context, id int64, version int, user string) error

	// GetVersions lists the stored content versions of a passfile, newest first.
	GetVersions(ctx context.Context, id int64, user string) ([]int, error)

	// NextLocalID returns the next id for a passfile that has not been
	// uploaded yet: -1, -2, -3, ... per user, never reused.
	NextLocalID(ctx context.Context, user string) (int64, error)

	Close() error
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", common.ErrStorage, op, err)
}
