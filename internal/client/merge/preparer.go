package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/client/passfilecrypto"
	"github.com/dmitrijs2005/passkeeper/internal/client/storage"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/logging"
)

// Preparer computes merge results for passfiles of one kind, reading the
// branch-point content from the local store.
type Preparer[S models.SectionKind] struct {
	store  storage.LocalStore
	user   string
	crypto *passfilecrypto.Service[S]
	logger logging.Logger
}

func NewPreparer[S models.SectionKind](store storage.LocalStore, user string, logger logging.Logger) *Preparer[S] {
	return &Preparer[S]{
		store:  store,
		user:   user,
		crypto: passfilecrypto.New[S](),
		logger: logger.With("module", "merge", "user", user),
	}
}

// Prepare merges the open contents of local and remote. The base is the
// stored content at local's Origin version, opened with the local
// passphrase or, failing that, the remote one. Without a usable base the
// result is two-way.
func (p *Preparer[S]) Prepare(ctx context.Context, local, remote *models.PassFile[S]) (*Result[S], error) {
	if local == nil || remote == nil {
		return nil, fmt.Errorf("%w: prepare merge: nil passfile", common.ErrInvariant)
	}
	if !local.Content.Decrypted || !remote.Content.Decrypted {
		return nil, passfilecrypto.ErrNotDecrypted
	}

	base, hasBase, err := p.loadBase(ctx, local, remote.Content.PassPhrase)
	if err != nil {
		return nil, err
	}

	res, err := Sections(local.Content.Sections, remote.Content.Sections, base, hasBase)
	if err != nil {
		return nil, err
	}

	p.logger.Info(ctx, "merge prepared",
		"id", local.ID,
		"local_version", local.Version,
		"remote_version", remote.Version,
		"merged", len(res.Sections),
		"conflicts", len(res.Conflicts),
		"two_way", res.TwoWay,
	)
	return res, nil
}

func (p *Preparer[S]) loadBase(ctx context.Context, local *models.PassFile[S], remotePass []byte) ([]S, bool, error) {
	if local.Origin == nil || local.Origin.Version == 0 {
		return nil, false, nil
	}

	typ := models.TypeOf[S]()
	data, err := p.store.LoadEncryptedContent(ctx, typ, local.ID, local.Origin.Version, p.user)
	if errors.Is(err, common.ErrNotFound) {
		p.logger.Warn(ctx, "branch-point content is gone, merging two-way", "id", local.ID, "version", local.Origin.Version)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	for _, pass := range [][]byte{local.Content.PassPhrase, remotePass} {
		if len(pass) == 0 {
			continue
		}
		sections, err := p.crypto.Open(data, pass)
		if err == nil {
			return sections, true, nil
		}
		if !errors.Is(err, common.ErrWrongPassphrase) && !errors.Is(err, common.ErrValidation) {
			return nil, false, err
		}
	}

	p.logger.Warn(ctx, "branch-point content could not be opened, merging two-way", "id", local.ID)
	return nil, false, nil
}
