// Package passfiles stores the server copies of passfile index records and
// their content versions.
package passfiles

import (
	"context"

	"github.com/dmitrijs2005/passkeeper/internal/server/models"
)

// Repository is scoped by user: a passfile of another user is reported as
// common.ErrNotFound.
type Repository interface {
	List(ctx context.Context, userID int64, typ int) ([]*models.PassFile, error)
	Get(ctx context.Context, userID, id int64) (*models.PassFile, error)

	// Create inserts pf and fills its ID.
	Create(ctx context.Context, pf *models.PassFile) error
	UpdateInfo(ctx context.Context, pf *models.PassFile) error
	UpdateVersion(ctx context.Context, pf *models.PassFile) error
	Delete(ctx context.Context, userID, id int64) error

	GetContent(ctx context.Context, id int64, version int) ([]byte, error)
	PutContent(ctx context.Context, id int64, version int, data []byte) error
}
