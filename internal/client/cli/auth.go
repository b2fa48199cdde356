package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/client/services"
	"github.com/dmitrijs2005/passkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// ErrPendingChanges is returned when an action would drop uncommitted edits.
var ErrPendingChanges = errors.New("there are uncommitted changes, commit or rollback first")

// Register prompts for a user name and password and creates the account
// on the server.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, userName, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login authenticates online, falling back to the cached credentials when
// the server is unreachable, then loads the user's passfiles.
func (a *App) Login(ctx context.Context) error {
	if a.manager.AnyChanged() {
		return ErrPendingChanges
	}

	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	online, err := a.auth.Login(ctx, userName, password)
	if err != nil {
		if errors.Is(err, services.ErrLocalDataNotAvailable) {
			a.setMode(ModeDisabled)
		}
		return fmt.Errorf("login unsuccessful: %w", err)
	}

	if err := a.manager.SwitchUser(ctx, userName); err != nil {
		return err
	}
	a.pwdSync = services.NewSyncService(a.manager.Pwd(), a.store, a.remote, a.logger)
	a.txtSync = services.NewSyncService(a.manager.Txt(), a.store, a.remote, a.logger)

	if online {
		a.setMode(ModeOnline)
		fmt.Fprintln(a.out, "Login successful")
	} else {
		a.setMode(ModeOffline)
		fmt.Fprintln(a.out, "Server unavailable, logged in offline")
	}
	return nil
}

// Logout forgets the cached credentials and closes every passfile.
func (a *App) Logout(ctx context.Context) error {
	if a.manager.AnyChanged() {
		return ErrPendingChanges
	}
	if err := a.auth.Logout(ctx, a.manager.User()); err != nil {
		return err
	}
	a.manager.Dispose()
	a.pwdSync, a.txtSync = nil, nil
	a.setMode("")
	return nil
}

// syncService returns the sync service of section kind S.
func syncService[S models.SectionKind](a *App) *services.SyncService[S] {
	var zero S
	switch any(zero).(type) {
	case models.PwdSection:
		return any(a.pwdSync).(*services.SyncService[S])
	default:
		return any(a.txtSync).(*services.SyncService[S])
	}
}
