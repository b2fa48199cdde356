package passfiles

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/clock"
	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/client/storage"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/logging"
)

// ErrNoUser is returned by Manager operations before SwitchUser succeeded.
var ErrNoUser = fmt.Errorf("%w: no active user", common.ErrValidation)

// Manager owns the contexts of every passfile type for the active user.
type Manager struct {
	store  storage.LocalStore
	clock  clock.Clock
	logger logging.Logger
	opts   Options

	user string
	pwd  *Context[models.PwdSection]
	txt  *Context[models.TxtSection]
}

func NewManager(store storage.LocalStore, clk clock.Clock, logger logging.Logger, opts Options) *Manager {
	return &Manager{store: store, clock: clk, logger: logger, opts: opts}
}

// SwitchUser disposes the current contexts and loads the lists of user.
// On failure no user is active.
func (m *Manager) SwitchUser(ctx context.Context, user string) error {
	if user == "" {
		return fmt.Errorf("%w: empty user name", common.ErrValidation)
	}
	m.Dispose()

	pwd := NewContext[models.PwdSection](user, m.store, m.clock, m.logger, m.opts)
	txt := NewContext[models.TxtSection](user, m.store, m.clock, m.logger, m.opts)
	if err := pwd.LoadList(ctx); err != nil {
		return err
	}
	if err := txt.LoadList(ctx); err != nil {
		pwd.Dispose()
		return err
	}

	m.user, m.pwd, m.txt = user, pwd, txt
	m.logger.Info(ctx, "active user switched", "user", user)
	return nil
}

// User returns the active user, or "" before SwitchUser.
func (m *Manager) User() string { return m.user }

func (m *Manager) Pwd() *Context[models.PwdSection] { return m.pwd }

func (m *Manager) Txt() *Context[models.TxtSection] { return m.txt }

// For returns the context of section kind S, or nil before SwitchUser.
func For[S models.SectionKind](m *Manager) *Context[S] {
	var zero S
	switch any(zero).(type) {
	case models.PwdSection:
		if m.pwd == nil {
			return nil
		}
		return any(m.pwd).(*Context[S])
	case models.TxtSection:
		if m.txt == nil {
			return nil
		}
		return any(m.txt).(*Context[S])
	}
	return nil
}

// AnyChanged reports whether any context has uncommitted local edits.
func (m *Manager) AnyChanged() bool {
	return (m.pwd != nil && m.pwd.AnyChanged()) || (m.txt != nil && m.txt.AnyChanged())
}

// CommitAll commits every context. Each context commits atomically on its
// own; a failure in the second leaves the first committed.
func (m *Manager) CommitAll(ctx context.Context) (CommitResult, error) {
	if m.user == "" {
		return CommitResult{}, ErrNoUser
	}
	total := CommitResult{}
	for _, commit := range []func(context.Context) (CommitResult, error){m.pwd.Commit, m.txt.Commit} {
		r, err := commit(ctx)
		if err != nil {
			return total, err
		}
		total.Written += r.Written
		total.Purged += r.Purged
		total.Warnings = append(total.Warnings, r.Warnings...)
	}
	return total, nil
}

// RollbackAll rolls back every context.
func (m *Manager) RollbackAll() {
	if m.pwd != nil {
		m.pwd.Rollback()
	}
	if m.txt != nil {
		m.txt.Rollback()
	}
}

// Dispose drops every context and forgets the active user.
func (m *Manager) Dispose() {
	if m.pwd != nil {
		m.pwd.Dispose()
	}
	if m.txt != nil {
		m.txt.Dispose()
	}
	m.user, m.pwd, m.txt = "", nil, nil
}
