package passfiles

import (
	"context"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
)

type Repository interface {
	// ListByType returns the records of one type for a user, ordered by id.
	ListByType(ctx context.Context, user string, typ models.PassFileType) ([]models.Info, error)

	// ReplaceType deletes every record of typ for the user and inserts list.
	ReplaceType(ctx context.Context, user string, typ models.PassFileType, list []models.Info) error
}
