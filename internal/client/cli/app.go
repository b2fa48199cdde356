package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/client/config"
	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/client/passfiles"
	"github.com/dmitrijs2005/passkeeper/internal/client/remote"
	"github.com/dmitrijs2005/passkeeper/internal/client/services"
	"github.com/dmitrijs2005/passkeeper/internal/client/storage"
	"github.com/dmitrijs2005/passkeeper/internal/clock"
	"github.com/dmitrijs2005/passkeeper/internal/filex"
	"github.com/dmitrijs2005/passkeeper/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// authenticator is the part of services.AuthService the CLI uses.
type authenticator interface {
	Login(ctx context.Context, userName string, password []byte) (online bool, err error)
	Register(ctx context.Context, userName string, password []byte) error
	Logout(ctx context.Context, userName string) error
	Ping(ctx context.Context) error
	Close() error
}

// localStore is a local store that also keeps offline credentials. Both
// storage backends satisfy it.
type localStore interface {
	storage.LocalStore
	storage.CredentialStore
}

type App struct {
	config  *config.Config
	auth    authenticator
	store   storage.LocalStore
	remote  remote.RemoteStore
	manager *passfiles.Manager
	logger  logging.Logger

	pwdSync *services.SyncService[models.PwdSection]
	txtSync *services.SyncService[models.TxtSection]

	mu   sync.Mutex
	mode Mode

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local store selected by c and prepares a lazy
// connection to the server.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logger := logging.NewTextLogger(os.Stderr, c.LogLevel)

	store, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("error opening local store: %w", err)
	}

	rc, err := remote.NewGRPCClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	auth := services.NewAuthService(rc, store, logger)
	return newApp(c, auth, store, rc, clock.Real(), logger, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, auth authenticator, store storage.LocalStore, rs remote.RemoteStore,
	clk clock.Clock, logger logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config:  c,
		auth:    auth,
		store:   store,
		remote:  rs,
		manager: passfiles.NewManager(store, clk, logger, passfiles.Options{KeepVersions: c.KeepVersions}),
		logger:  logger.With("module", "cli"),
		reader:  bufio.NewReader(in),
		out:     out,
	}
}

func openStore(ctx context.Context, c *config.Config) (localStore, error) {
	path, err := filex.EnsureParentDir(c.DataPath)
	if err != nil {
		return nil, err
	}
	if c.StorageDriver == config.DriverBolt {
		return storage.OpenBolt(path)
	}
	return storage.OpenSQLite(ctx, path)
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed && mode != "" {
		a.logger.Info(context.Background(), "connection mode changed", "mode", string(mode))
	}
}

func (a *App) isLoggedIn() bool {
	return a.manager.User() != ""
}

// Run starts the REPL and blocks until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "passkeeper (type 'help' for commands)")

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.status, a.reader)

	if a.manager.AnyChanged() {
		fmt.Fprintln(a.out, "uncommitted changes were discarded")
	}
}

// Close wipes every open passfile and releases the store and connection.
func (a *App) Close() {
	a.manager.Dispose()
	if err := a.auth.Close(); err != nil {
		a.logger.Warn(context.Background(), "closing connection", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn(context.Background(), "closing local store", "error", err)
	}
}

func (a *App) status() string {
	s := a.manager.User()
	if m := a.Mode(); m != "" {
		if s != "" {
			s += " "
		}
		s += string(m)
	}
	if a.manager.AnyChanged() {
		s += " *"
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the server every interval and switches
// between online and offline mode while a user is logged in.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	if a.Mode() == "" || a.Mode() == ModeDisabled {
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	err := a.auth.Ping(pingCtx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
}
