package cli

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/client/passfiles"
	"github.com/dmitrijs2005/passkeeper/internal/common"
)

var errPassphraseMismatch = fmt.Errorf("%w: passphrases do not match", common.ErrValidation)

// passFileCmd is a command body for one passfile of section kind S.
type passFileCmd[S models.SectionKind] func(ctx context.Context, a *App, pfc *passfiles.Context[S], pf *models.PassFile[S]) error

// onPassFile resolves the id in args[0] in either context and runs the
// matching command body.
func onPassFile(ctx context.Context, a *App, args []string, pwd passFileCmd[models.PwdSection], txt passFileCmd[models.TxtSection]) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: passfile id expected", common.ErrValidation)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad passfile id %q", common.ErrValidation, args[0])
	}

	if pf, ok := a.manager.Pwd().Get(id); ok {
		return pwd(ctx, a, a.manager.Pwd(), pf)
	}
	if pf, ok := a.manager.Txt().Get(id); ok {
		return txt(ctx, a, a.manager.Txt(), pf)
	}
	return fmt.Errorf("%w: passfile %d", common.ErrNotFound, id)
}

// List prints every passfile of the user, tombstones included.
func (a *App) List(_ context.Context) error {
	n := listPassFiles(a, a.manager.Pwd()) + listPassFiles(a, a.manager.Txt())
	if n == 0 {
		fmt.Fprintln(a.out, "No passfiles yet")
	}
	return nil
}

func listPassFiles[S models.SectionKind](a *App, pfc *passfiles.Context[S]) int {
	list := pfc.CurrentList()
	for _, pf := range list {
		var flags []string
		if pf.IsLocalOnly() {
			flags = append(flags, "local")
		}
		if pf.IsDeleted() {
			flags = append(flags, "deleted")
		}
		if pf.Mark != models.MarkNone {
			flags = append(flags, pf.Mark.String())
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, " ") + "]"
		}
		fmt.Fprintf(a.out, "%6d  %s  %-24s v%d%s\n", pf.ID, pf.Type, pf.Name, pf.Version, suffix)
	}
	return len(list)
}

// New creates a passfile: new <pwd|txt> <name>.
func (a *App) New(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: new <pwd|txt> <name>", common.ErrValidation)
	}
	name := strings.Join(args[1:], " ")

	switch args[0] {
	case models.PassFileTypePwd.String():
		return newPassFile(ctx, a, a.manager.Pwd(), name)
	case models.PassFileTypeTxt.String():
		return newPassFile(ctx, a, a.manager.Txt(), name)
	}
	return fmt.Errorf("%w: unknown passfile type %q", common.ErrValidation, args[0])
}

func newPassFile[S models.SectionKind](ctx context.Context, a *App, pfc *passfiles.Context[S], name string) error {
	pass, err := getPassword(a.reader, "New passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	again, err := getPassword(a.reader, "Repeat passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)
	if !bytes.Equal(pass, again) {
		return errPassphraseMismatch
	}

	pf, err := pfc.Create(ctx, name, pass)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s passfile %d\n", pf.Type, pf.ID)
	return nil
}

// open makes sure the content of pf is decrypted, asking for the
// passphrase when it is not.
func open[S models.SectionKind](ctx context.Context, a *App, pfc *passfiles.Context[S], pf *models.PassFile[S]) error {
	if pf.Content.Decrypted {
		return nil
	}
	pass, err := getPassword(a.reader, fmt.Sprintf("Passphrase for %q", pf.Name), a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)
	return pfc.LoadContent(ctx, pf, pass)
}

func (a *App) Show(ctx context.Context, args []string) error {
	return onPassFile(ctx, a, args, show[models.PwdSection], show[models.TxtSection])
}

func show[S models.SectionKind](ctx context.Context, a *App, pfc *passfiles.Context[S], pf *models.PassFile[S]) error {
	if err := open(ctx, a, pfc, pf); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s, version %d)\n", pf.Name, pf.Type, pf.Version)
	if len(pf.Content.Sections) == 0 {
		fmt.Fprintln(a.out, "  no sections")
	}
	for _, s := range pf.Content.Sections {
		fmt.Fprint(a.out, s.String())
	}
	return nil
}

func (a *App) AddSection(ctx context.Context, args []string) error {
	return onPassFile(ctx, a, args, addSection[models.PwdSection], addSection[models.TxtSection])
}

func addSection[S models.SectionKind](ctx context.Context, a *App, pfc *passfiles.Context[S], pf *models.PassFile[S]) error {
	if pf.IsDeleted() {
		return fmt.Errorf("%w: passfile %d is deleted, restore it first", common.ErrValidation, pf.ID)
	}
	if err := open(ctx, a, pfc, pf); err != nil {
		return err
	}
	section, err := readSection[S](a)
	if err != nil {
		return err
	}
	pf.Content.Sections = append(pf.Content.Sections, section)
	return pfc.ApplyLocalContentEdit(pf)
}

func readSection[S models.SectionKind](a *App) (S, error) {
	var zero S
	name, err := getSimpleText(a.reader, "Section name", a.out)
	if err != nil {
		return zero, err
	}
	if name == "" {
		return zero, fmt.Errorf("%w: section name is empty", common.ErrValidation)
	}

	switch any(zero).(type) {
	case models.PwdSection:
		url, err := getSimpleText(a.reader, "Website URL (optional)", a.out)
		if err != nil {
			return zero, err
		}
		lines, err := GetMultiline(a.reader, "Items, one per line: secret or secret=login,email", a.out)
		if err != nil {
			return zero, err
		}
		items := make([]models.PwdItem, 0, len(lines))
		for _, l := range lines {
			it, err := models.ParsePwdItem(l)
			if err != nil {
				return zero, err
			}
			items = append(items, it)
		}
		return any(models.NewPwdSection(name, url, items...)).(S), nil
	default:
		lines, err := GetMultiline(a.reader, "Text", a.out)
		if err != nil {
			return zero, err
		}
		return any(models.NewTxtSection(name, strings.Join(lines, "\n"))).(S), nil
	}
}

// Rename changes a passfile's name: rename <id> <name>.
func (a *App) Rename(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: rename <id> <name>", common.ErrValidation)
	}
	name := strings.Join(args[1:], " ")
	return onPassFile(ctx, a, args, rename[models.PwdSection](name), rename[models.TxtSection](name))
}

func rename[S models.SectionKind](name string) passFileCmd[S] {
	return func(_ context.Context, _ *App, pfc *passfiles.Context[S], pf *models.PassFile[S]) error {
		pf.Name = name
		return pfc.ApplyLocalInfoEdit(pf)
	}
}

func (a *App) Delete(ctx context.Context, args []string) error {
	return onPassFile(ctx, a, args, deletePassFile[models.PwdSection], deletePassFile[models.TxtSection])
}

func deletePassFile[S models.SectionKind](_ context.Context, a *App, pfc *passfiles.Context[S], pf *models.PassFile[S]) error {
	if err := pfc.Delete(pf); err != nil {
		return err
	}
	if !pf.IsLocalOnly() {
		fmt.Fprintln(a.out, "Marked as deleted; the next sync removes it from the server")
	}
	return nil
}

func (a *App) Restore(ctx context.Context, args []string) error {
	return onPassFile(ctx, a, args, restore[models.PwdSection], restore[models.TxtSection])
}

func restore[S models.SectionKind](_ context.Context, _ *App, pfc *passfiles.Context[S], pf *models.PassFile[S]) error {
	return pfc.Restore(pf)
}

// Commit writes every pending edit to the local store.
func (a *App) Commit(ctx context.Context) error {
	res, err := a.manager.CommitAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Committed: %d written, %d purged\n", res.Written, res.Purged)
	for _, w := range res.Warnings {
		fmt.Fprintln(a.out, "Warning:", w)
	}
	return nil
}

// Rollback drops every edit made since the last commit.
func (a *App) Rollback(_ context.Context) error {
	a.manager.RollbackAll()
	fmt.Fprintln(a.out, "Changes rolled back")
	return nil
}
