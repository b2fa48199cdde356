package contents

import (
	"context"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
)

type Repository interface {
	// Get returns common.ErrNotFound when the blob does not exist.
	Get(ctx context.Context, user string, typ models.PassFileType, id int64, version int) ([]byte, error)
	Put(ctx context.Context, user string, typ models.PassFileType, id int64, version int, data []byte) error
	Delete(ctx context.Context, user string, id int64, version int) error
	// Versions lists stored versions of a passfile, newest first.
	Versions(ctx context.Context, user string, id int64) ([]int, error)
}
