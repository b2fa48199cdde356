// Package remote is the client side of the passfile server: the RemoteStore
// contract used by synchronization and its gRPC implementation.
package remote

import (
	"context"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
)

// RemoteStore is the server copy of a user's passfiles. Records returned by
// a RemoteStore carry no tombstones, origin stamps or marks.
//
// Errors wrap common.ErrNetwork for transport failures, common.ErrNotFound
// for unknown ids and common.ErrUnauthorized for rejected credentials.
type RemoteStore interface {
	GetList(ctx context.Context, typ models.PassFileType) ([]models.Info, error)
	GetInfo(ctx context.Context, id int64) (*models.Info, error)
	GetEncryptedContent(ctx context.Context, id int64, version int) ([]byte, error)

	// Add creates the record on the server without content. The returned
	// record carries the server-assigned id and version 0.
	Add(ctx context.Context, info models.Info) (*models.Info, error)
	SaveInfo(ctx context.Context, info models.Info) (*models.Info, error)

	// SaveContent stores data as the next version and returns the updated
	// record.
	SaveContent(ctx context.Context, id int64, data []byte) (*models.Info, error)

	// Delete removes a passfile. accountPassword is required.
	Delete(ctx context.Context, id int64, accountPassword []byte) error
}

// AuthClient is the account part of the server API.
type AuthClient interface {
	Register(ctx context.Context, userName string, salt, verifier []byte) error
	GetSalt(ctx context.Context, userName string) ([]byte, error)
	Login(ctx context.Context, userName string, verifier []byte) error
	Ping(ctx context.Context) error
	Close() error
}
