package users

import (
	"context"

	"github.com/dmitrijs2005/passkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID. A taken user name yields
	// common.ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}
