package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/merge"
	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/client/passfiles"
	"github.com/dmitrijs2005/passkeeper/internal/client/services"
	"github.com/dmitrijs2005/passkeeper/internal/common"
)

// Sync synchronizes both passfile types with the server. The account
// password is asked for only when there are deletions to send.
func (a *App) Sync(ctx context.Context) error {
	var opts services.SyncOptions
	if hasTombstones(a.manager.Pwd()) || hasTombstones(a.manager.Txt()) {
		pw, err := getPassword(a.reader, "Account password to confirm deletions (empty to skip)", a.out)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(pw)
		opts.AccountPassword = pw
	}

	var errs []error
	for _, run := range []func() (*services.Report, error){
		func() (*services.Report, error) { return a.pwdSync.Sync(ctx, opts) },
		func() (*services.Report, error) { return a.txtSync.Sync(ctx, opts) },
	} {
		report, err := run()
		if report != nil {
			a.printReport(report)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return fmt.Errorf("%w (log in again while online)", err)
	case errors.Is(err, common.ErrNetwork):
		a.setMode(ModeOffline)
	case err == nil:
		a.setMode(ModeOnline)
	}
	return err
}

func hasTombstones[S models.SectionKind](pfc *passfiles.Context[S]) bool {
	for _, pf := range pfc.CurrentList() {
		if pf.IsDeleted() {
			return true
		}
	}
	return false
}

func (a *App) printReport(r *services.Report) {
	for _, e := range r.Entries {
		if e.Outcome == services.OutcomeUpToDate {
			continue
		}
		if e.Err != nil {
			fmt.Fprintf(a.out, "%6d  %-24s %s: %v\n", e.ID, e.Name, e.Outcome, e.Err)
			continue
		}
		fmt.Fprintf(a.out, "%6d  %-24s %s\n", e.ID, e.Name, e.Outcome)
	}
	for _, w := range r.Commit.Warnings {
		fmt.Fprintln(a.out, "Warning:", w)
	}
	if n := r.Count(services.OutcomeNeedsMerge); n > 0 {
		fmt.Fprintf(a.out, "%d passfile(s) need a merge, see 'merge <id>'\n", n)
	}
}

// Merge resolves a passfile marked as needing a merge: merge <id>.
func (a *App) Merge(ctx context.Context, args []string) error {
	return onPassFile(ctx, a, args, mergePassFile[models.PwdSection], mergePassFile[models.TxtSection])
}

func mergePassFile[S models.SectionKind](ctx context.Context, a *App, pfc *passfiles.Context[S], pf *models.PassFile[S]) error {
	if !pf.Mark.Has(models.MarkNeedsMerge) {
		return fmt.Errorf("%w: passfile %d does not need a merge", common.ErrValidation, pf.ID)
	}
	if err := open(ctx, a, pfc, pf); err != nil {
		return err
	}

	svc := syncService[S](a)
	session, err := svc.PrepareMerge(ctx, pf, nil)
	if errors.Is(err, common.ErrWrongPassphrase) {
		// the remote copy was re-encrypted with another passphrase
		pass, perr := getPassword(a.reader, "Passphrase of the remote version", a.out)
		if perr != nil {
			return perr
		}
		defer common.WipeByteArray(pass)
		session, err = svc.PrepareMerge(ctx, pf, pass)
	}
	if err != nil {
		return err
	}

	res := session.Result
	if res.TwoWay {
		fmt.Fprintln(a.out, "The common base is not available, every difference is a conflict")
	}
	fmt.Fprintf(a.out, "%d section(s) merged, %d conflict(s)\n", len(res.Sections), len(res.Conflicts))

	for !res.Resolved() {
		if err := resolveConflict(a, res); err != nil {
			return err
		}
	}

	commit, err := svc.ApplyMerge(ctx, session)
	if err != nil {
		return err
	}
	for _, w := range commit.Warnings {
		fmt.Fprintln(a.out, "Warning:", w)
	}
	fmt.Fprintf(a.out, "Merged into version %d; sync to upload it\n", pf.Version)
	return nil
}

// resolveConflict asks the user how to resolve the first conflict of res.
func resolveConflict[S models.SectionKind](a *App, res *merge.Result[S]) error {
	c := res.Conflicts[0]
	fmt.Fprint(a.out, merge.ConflictText(c))

	suggested, hasSuggestion := suggest(c)
	prompt := "Keep (l)ocal, (r)emote or (d)rop the section?"
	if hasSuggestion {
		fmt.Fprintf(a.out, "Suggested merge:\n%s", suggested.String())
		prompt = "Keep (l)ocal, (r)emote, (s)uggested or (d)rop the section?"
	}

	for {
		answer, err := getSimpleText(a.reader, prompt, a.out)
		if err != nil {
			return err
		}
		switch answer {
		case "l", "local":
			return res.AcceptLocal(0)
		case "r", "remote":
			return res.AcceptRemote(0)
		case "d", "drop":
			return res.Discard(0)
		case "s", "suggested":
			if hasSuggestion {
				return res.Accept(0, suggested)
			}
		}
	}
}

// suggest offers an automatic text merge for note conflicts.
func suggest[S models.SectionKind](c merge.Conflict[S]) (S, bool) {
	var zero S
	tc, ok := any(c).(merge.Conflict[models.TxtSection])
	if !ok {
		return zero, false
	}
	merged, ok := merge.SuggestTxt(tc)
	if !ok {
		return zero, false
	}
	return any(merged).(S), true
}
