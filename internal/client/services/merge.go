package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/merge"
	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/client/passfilecrypto"
	"github.com/dmitrijs2005/passkeeper/internal/client/passfiles"
	"github.com/dmitrijs2005/passkeeper/internal/common"
)

// ErrUnresolved is returned by ApplyMerge while conflicts remain.
var ErrUnresolved = fmt.Errorf("%w: merge has unresolved conflicts", common.ErrValidation)

// MergeSession is a merge in progress between a local passfile and its
// current remote version.
type MergeSession[S models.SectionKind] struct {
	Local  *models.PassFile[S]
	Remote *models.PassFile[S]
	Result *merge.Result[S]
}

// PrepareMerge fetches the remote version of pf and merges it with the
// open local content. remotePassphrase opens the remote content; when
// empty the local passphrase is tried.
func (s *SyncService[S]) PrepareMerge(ctx context.Context, pf *models.PassFile[S], remotePassphrase []byte) (*MergeSession[S], error) {
	if !pf.Content.Decrypted {
		return nil, passfilecrypto.ErrNotDecrypted
	}

	info, err := s.remote.GetInfo(ctx, pf.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch remote info: %w", err)
	}
	data, err := s.remote.GetEncryptedContent(ctx, info.ID, info.Version)
	if err != nil {
		return nil, fmt.Errorf("fetch remote content: %w", err)
	}

	pass := remotePassphrase
	if len(pass) == 0 {
		pass = pf.Content.PassPhrase
	}
	remotePF := &models.PassFile[S]{Info: *info, Content: models.Content[S]{Encrypted: data}}
	if err := s.pfc.Crypto().Decrypt(remotePF, pass); err != nil {
		return nil, err
	}

	res, err := s.merger.Prepare(ctx, pf, remotePF)
	if err != nil {
		return nil, err
	}
	return &MergeSession[S]{Local: pf, Remote: remotePF, Result: res}, nil
}

// ApplyMerge commits the resolved sections as a local edit on top of the
// remote version. The remote content is kept as the new branch point so
// the next sync pushes the merge and later merges have a base.
func (s *SyncService[S]) ApplyMerge(ctx context.Context, session *MergeSession[S]) (passfiles.CommitResult, error) {
	if !session.Result.Resolved() {
		return passfiles.CommitResult{}, ErrUnresolved
	}
	pf, r := session.Local, session.Remote

	pf.Content.Sections = models.CloneSections(session.Result.Sections)
	pf.Version = r.Version
	pf.VersionChangedOn = r.VersionChangedOn
	if err := s.pfc.ApplyRemoteContentBaseline(pf); err != nil {
		return passfiles.CommitResult{}, err
	}
	if err := s.pfc.ApplyLocalContentEdit(pf); err != nil {
		return passfiles.CommitResult{}, err
	}
	if pf.Version <= r.Version {
		pf.Version = r.Version + 1
	}
	if err := s.pfc.SetMark(pf, pf.Mark.Without(models.MarkNeedsMerge|models.MarkErrors)); err != nil {
		return passfiles.CommitResult{}, err
	}

	res, err := s.pfc.Commit(ctx)
	if err != nil {
		return passfiles.CommitResult{}, err
	}

	typ, user := s.pfc.Type(), s.pfc.User()
	if err := s.store.SaveEncryptedContent(ctx, typ, pf.ID, r.Version, r.Content.Encrypted, user); err != nil {
		s.logger.Warn(ctx, "could not keep remote content as merge base", "id", pf.ID, "version", r.Version, "error", err)
		// a stale blob under this version would be taken for the base
		_ = s.store.DeleteEncryptedContent(ctx, pf.ID, r.Version, user)
		res.Warnings = append(res.Warnings, err)
	}

	s.logger.Info(ctx, "merge applied", "id", pf.ID, "version", pf.Version, "base", r.Version)
	return res, nil
}
