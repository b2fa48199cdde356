// Package services holds the client application services: account login
// and the synchronization of local passfiles with the server.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/merge"
	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/client/passfiles"
	"github.com/dmitrijs2005/passkeeper/internal/client/remote"
	"github.com/dmitrijs2005/passkeeper/internal/client/storage"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/logging"
)

// SyncOptions tune one Sync run.
type SyncOptions struct {
	// AccountPassword authorizes remote deletions. Without it tombstones
	// stay pending.
	AccountPassword []byte
}

// SyncService reconciles the passfiles of one Context with the server.
type SyncService[S models.SectionKind] struct {
	pfc    *passfiles.Context[S]
	store  storage.LocalStore
	remote remote.RemoteStore
	merger *merge.Preparer[S]
	logger logging.Logger
}

func NewSyncService[S models.SectionKind](pfc *passfiles.Context[S], store storage.LocalStore, rs remote.RemoteStore, logger logging.Logger) *SyncService[S] {
	return &SyncService[S]{
		pfc:    pfc,
		store:  store,
		remote: rs,
		merger: merge.NewPreparer[S](store, pfc.User(), logger),
		logger: logger.With("module", "sync", "type", pfc.Type().String(), "user", pfc.User()),
	}
}

// Sync commits pending edits, then brings every passfile in line with the
// server. A failure on one passfile marks it and is recorded in the
// report; it never aborts the others. The returned error is set only when
// nothing could be synced at all.
func (s *SyncService[S]) Sync(ctx context.Context, opts SyncOptions) (*Report, error) {
	report := &Report{}

	if s.pfc.AnyChanged() {
		if _, err := s.pfc.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit before sync: %w", err)
		}
	}

	remoteList, err := s.remote.GetList(ctx, s.pfc.Type())
	if err != nil {
		return nil, fmt.Errorf("fetch remote list: %w", err)
	}
	remoteByID := make(map[int64]models.Info, len(remoteList))
	for _, r := range remoteList {
		remoteByID[r.ID] = r
	}

	seen := make(map[int64]bool, len(remoteList))
	for _, pf := range s.pfc.CurrentList() {
		if err := ctx.Err(); err != nil {
			break
		}
		seen[pf.ID] = true

		switch r, ok := remoteByID[pf.ID]; {
		case pf.IsLocalOnly():
			s.upload(ctx, pf, report)
		case pf.IsDeleted():
			s.deleteRemote(ctx, pf, ok, opts, report)
		case !ok:
			s.remoteGone(ctx, pf, report)
		default:
			s.reconcile(ctx, pf, r, report)
		}
	}

	for _, r := range remoteList {
		if seen[r.ID] || ctx.Err() != nil {
			continue
		}
		s.download(ctx, r, report)
	}

	res, err := s.pfc.Commit(ctx)
	if err != nil {
		return report, fmt.Errorf("commit after sync: %w", err)
	}
	report.Commit = res

	s.logger.Info(ctx, "sync finished",
		"entries", len(report.Entries),
		"failed", len(report.Failed()),
		"needs_merge", report.Count(OutcomeNeedsMerge),
	)
	return report, ctx.Err()
}

// Classify compares a local record with its remote copy against the
// branch point. It reports whether content and info changed on each side.
func Classify(local, remote models.Info) (localContent, remoteContent, localInfo, remoteInfo bool) {
	localContent, localInfo = changedSince(local.Origin, local)
	remoteContent, remoteInfo = changedSince(local.Origin, remote)
	return
}

func changedSince(origin *models.ChangeStamps, info models.Info) (content, infoChanged bool) {
	var o models.ChangeStamps
	if origin != nil {
		o = *origin
	}
	content = info.Version != o.Version || !info.VersionChangedOn.Equal(o.VersionChangedOn)
	infoChanged = !info.InfoChangedOn.Equal(o.InfoChangedOn)
	return
}

func (s *SyncService[S]) reconcile(ctx context.Context, pf *models.PassFile[S], r models.Info, report *Report) {
	localContent, remoteContent, localInfo, remoteInfo := Classify(pf.Info, r)

	switch {
	case localContent && remoteContent:
		s.mark(pf, pf.Mark.Without(models.MarkErrors).With(models.MarkNeedsMerge))
		report.add(pf.ID, pf.Name, OutcomeNeedsMerge, nil)
	case localContent:
		if err := s.push(ctx, pf); err != nil {
			s.fail(ctx, pf, models.MarkUploadError, err, report)
			return
		}
		report.add(pf.ID, pf.Name, OutcomePushed, nil)
	case remoteContent:
		if err := s.pull(ctx, pf, r); err != nil {
			s.fail(ctx, pf, models.MarkDownloadError, err, report)
			return
		}
		report.add(pf.ID, pf.Name, OutcomePulled, nil)
	}

	switch {
	case localInfo && (!remoteInfo || pf.InfoChangedOn.After(r.InfoChangedOn)):
		out, err := s.remote.SaveInfo(ctx, pf.Info)
		if err != nil {
			s.fail(ctx, pf, models.MarkUploadError, err, report)
			return
		}
		pf.InfoChangedOn = out.InfoChangedOn
		if err := s.pfc.ApplyRemoteInfoBaseline(pf); err != nil {
			s.fail(ctx, pf, models.MarkOtherError, err, report)
			return
		}
		report.add(pf.ID, pf.Name, OutcomeInfoPushed, nil)
	case remoteInfo:
		// only the remote changed, or both did and the remote edit is newer
		pf.Name = r.Name
		pf.Color = r.Color
		pf.InfoChangedOn = r.InfoChangedOn
		if err := s.pfc.ApplyRemoteInfoBaseline(pf); err != nil {
			s.fail(ctx, pf, models.MarkOtherError, err, report)
			return
		}
		report.add(pf.ID, pf.Name, OutcomeInfoPulled, nil)
	}

	if !localContent && !remoteContent && !localInfo && !remoteInfo {
		report.add(pf.ID, pf.Name, OutcomeUpToDate, nil)
	}
	if !(localContent && remoteContent) {
		s.mark(pf, pf.Mark.Without(models.MarkErrors|models.MarkNeedsMerge))
	}
}

// push uploads the working content as the next remote version.
func (s *SyncService[S]) push(ctx context.Context, pf *models.PassFile[S]) error {
	data, err := s.pfc.EncryptedContent(ctx, pf)
	if err != nil {
		return err
	}
	out, err := s.remote.SaveContent(ctx, pf.ID, data)
	if err != nil {
		return err
	}
	pf.Version = out.Version
	pf.VersionChangedOn = out.VersionChangedOn
	pf.Content.Encrypted = data
	return s.pfc.ApplyRemoteContentBaseline(pf)
}

// pull replaces the working content with the remote version r. Open
// content is reopened with the passphrase already held, when it fits.
func (s *SyncService[S]) pull(ctx context.Context, pf *models.PassFile[S], r models.Info) error {
	data, err := s.remote.GetEncryptedContent(ctx, r.ID, r.Version)
	if err != nil {
		return err
	}

	content := models.Content[S]{Encrypted: data, PassPhrase: pf.Content.PassPhrase}
	if pf.Content.Decrypted && len(pf.Content.PassPhrase) > 0 {
		if sections, err := s.pfc.Crypto().Open(data, pf.Content.PassPhrase); err == nil {
			content.Sections = sections
			content.Decrypted = true
		}
	}
	pf.Content = content
	pf.Version = r.Version
	pf.VersionChangedOn = r.VersionChangedOn
	return s.pfc.ApplyRemoteContentBaseline(pf)
}

// upload creates pf on the server and re-keys it under the server id. The
// re-keyed record is based on the empty remote version 0, so a failed
// content upload is retried as a plain push by the next sync.
func (s *SyncService[S]) upload(ctx context.Context, pf *models.PassFile[S], report *Report) {
	data, err := s.pfc.EncryptedContent(ctx, pf)
	if err != nil {
		s.fail(ctx, pf, models.MarkOtherError, err, report)
		return
	}

	created, err := s.remote.Add(ctx, pf.Info)
	if err != nil {
		s.fail(ctx, pf, models.MarkUploadError, err, report)
		return
	}

	rekeyed := pf.Clone()
	rekeyed.ID = created.ID
	rekeyed.DeletedOn = nil
	rekeyed.Mark = models.MarkNone
	rekeyed.InfoChangedOn = created.InfoChangedOn
	rekeyed.Origin = &models.ChangeStamps{
		InfoChangedOn:    created.InfoChangedOn,
		VersionChangedOn: created.VersionChangedOn,
		Version:          created.Version,
	}
	rekeyed.Content.Encrypted = data
	if err := s.pfc.Add(rekeyed, pf); err != nil {
		s.fail(ctx, pf, models.MarkOtherError, err, report)
		return
	}
	common.WipeByteArray(pf.Content.PassPhrase)

	if err := s.push(ctx, rekeyed); err != nil {
		s.fail(ctx, rekeyed, models.MarkUploadError, err, report)
		return
	}
	s.logger.Info(ctx, "passfile uploaded", "local_id", pf.ID, "id", rekeyed.ID)
	report.add(rekeyed.ID, rekeyed.Name, OutcomeUploaded, nil)
}

func (s *SyncService[S]) download(ctx context.Context, r models.Info, report *Report) {
	if r.Version == 0 {
		// created remotely but content never arrived; nothing to fetch yet
		return
	}
	data, err := s.remote.GetEncryptedContent(ctx, r.ID, r.Version)
	if err != nil {
		s.logger.Warn(ctx, "passfile download failed", "id", r.ID, "error", err)
		report.add(r.ID, r.Name, OutcomeFailed, err)
		return
	}

	info := r.Clone()
	info.Mark = models.MarkNone
	info.DeletedOn = nil
	stamps := info.Stamps()
	info.Origin = &stamps

	pf := &models.PassFile[S]{Info: info, Content: models.Content[S]{Encrypted: data}}
	if err := s.pfc.Add(pf, nil); err != nil {
		report.add(r.ID, r.Name, OutcomeFailed, err)
		return
	}
	report.add(r.ID, r.Name, OutcomeDownloaded, nil)
}

func (s *SyncService[S]) deleteRemote(ctx context.Context, pf *models.PassFile[S], existsRemotely bool, opts SyncOptions, report *Report) {
	if existsRemotely {
		if len(opts.AccountPassword) == 0 {
			report.add(pf.ID, pf.Name, OutcomePendingDelete, nil)
			return
		}
		err := s.remote.Delete(ctx, pf.ID, opts.AccountPassword)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			s.fail(ctx, pf, models.MarkOtherError, err, report)
			return
		}
	}
	id, name := pf.ID, pf.Name
	if err := s.pfc.AcceptRemoteDelete(pf); err != nil {
		s.fail(ctx, pf, models.MarkOtherError, err, report)
		return
	}
	report.add(id, name, OutcomeDeletedRemotely, nil)
}

// remoteGone handles a synced passfile that no longer exists on the
// server. Unchanged copies follow the deletion; edited ones are uploaded
// again as new passfiles.
func (s *SyncService[S]) remoteGone(ctx context.Context, pf *models.PassFile[S], report *Report) {
	localContent, localInfo := changedSince(pf.Origin, pf.Info)
	if pf.Origin == nil || localContent || localInfo {
		s.upload(ctx, pf, report)
		return
	}
	id, name := pf.ID, pf.Name
	if err := s.pfc.AcceptRemoteDelete(pf); err != nil {
		s.fail(ctx, pf, models.MarkOtherError, err, report)
		return
	}
	report.add(id, name, OutcomeDeletedLocally, nil)
}

func (s *SyncService[S]) mark(pf *models.PassFile[S], m models.Mark) {
	if pf.Mark == m {
		return
	}
	_ = s.pfc.SetMark(pf, m)
}

func (s *SyncService[S]) fail(ctx context.Context, pf *models.PassFile[S], flag models.Mark, err error, report *Report) {
	s.logger.Warn(ctx, "passfile sync failed", "id", pf.ID, "mark", flag.String(), "error", err)
	s.mark(pf, pf.Mark.With(flag))
	report.add(pf.ID, pf.Name, OutcomeFailed, err)
}
