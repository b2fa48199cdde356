package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/clock"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/dbx"
	"github.com/dmitrijs2005/passkeeper/internal/server/models"
	"github.com/dmitrijs2005/passkeeper/internal/server/repositories/repomanager"
)

const maxNameLength = 128

// PassFileService keeps the server copy of every user's passfiles. The
// server assigns ids and versions; clients only ever propose changes.
type PassFileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
}

func NewPassFileService(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock) *PassFileService {
	return &PassFileService{db: db, repomanager: m, clock: clk}
}

func (s *PassFileService) List(ctx context.Context, userID int64, typ int) ([]*models.PassFile, error) {
	return s.repomanager.PassFiles(s.db).List(ctx, userID, typ)
}

func (s *PassFileService) Get(ctx context.Context, userID, id int64) (*models.PassFile, error) {
	return s.repomanager.PassFiles(s.db).Get(ctx, userID, id)
}

func (s *PassFileService) GetContent(ctx context.Context, userID, id int64, version int) ([]byte, error) {
	repo := s.repomanager.PassFiles(s.db)
	if _, err := repo.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return repo.GetContent(ctx, id, version)
}

// Add stores a new passfile without content. The client's creation and
// info timestamps are kept; the version starts at 0.
func (s *PassFileService) Add(ctx context.Context, userID int64, pf *models.PassFile) (*models.PassFile, error) {
	if err := validate(pf); err != nil {
		return nil, err
	}
	now := s.clock.Now()

	created := *pf
	created.ID = 0
	created.UserID = userID
	created.Version = 0
	created.VersionChangedOn = now
	if created.CreatedOn.IsZero() {
		created.CreatedOn = now
	}
	if created.InfoChangedOn.IsZero() {
		created.InfoChangedOn = now
	}

	if err := s.repomanager.PassFiles(s.db).Create(ctx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// SaveInfo updates name and color. The client's edit time is kept so that
// concurrent renames resolve by edit time; server time is used when none
// is given.
func (s *PassFileService) SaveInfo(ctx context.Context, userID int64, pf *models.PassFile) (*models.PassFile, error) {
	if err := validate(pf); err != nil {
		return nil, err
	}

	var updated *models.PassFile
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.PassFiles(tx)
		current, err := repo.Get(ctx, userID, pf.ID)
		if err != nil {
			return err
		}
		current.Name = pf.Name
		current.Color = pf.Color
		current.InfoChangedOn = pf.InfoChangedOn
		if current.InfoChangedOn.IsZero() {
			current.InfoChangedOn = s.clock.Now()
		}
		if err := repo.UpdateInfo(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SaveContent stores data as the next content version of passfile id.
func (s *PassFileService) SaveContent(ctx context.Context, userID, id int64, data []byte) (*models.PassFile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty content", common.ErrValidation)
	}

	var updated *models.PassFile
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.PassFiles(tx)
		current, err := repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		current.Version++
		current.VersionChangedOn = s.clock.Now()
		if err := repo.PutContent(ctx, id, current.Version, data); err != nil {
			return err
		}
		if err := repo.UpdateVersion(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PassFileService) Delete(ctx context.Context, userID, id int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.PassFiles(tx).Delete(ctx, userID, id)
	})
}

func validate(pf *models.PassFile) error {
	if pf == nil {
		return fmt.Errorf("%w: missing passfile", common.ErrValidation)
	}
	if pf.Type != 1 && pf.Type != 2 {
		return fmt.Errorf("%w: unknown passfile type %d", common.ErrValidation, pf.Type)
	}
	if pf.Name == "" || len(pf.Name) > maxNameLength {
		return fmt.Errorf("%w: passfile name must be 1..%d bytes", common.ErrValidation, maxNameLength)
	}
	return nil
}
