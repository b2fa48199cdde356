package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/client/config"
	"github.com/dmitrijs2005/passkeeper/internal/client/remote"
	"github.com/dmitrijs2005/passkeeper/internal/client/services"
	"github.com/dmitrijs2005/passkeeper/internal/client/storage"
	"github.com/dmitrijs2005/passkeeper/internal/clock"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/logging"
	serverconfig "github.com/dmitrijs2005/passkeeper/internal/server/config"
	gs "github.com/dmitrijs2005/passkeeper/internal/server/grpc"
	"github.com/dmitrijs2005/passkeeper/internal/server/repositories/repomanager"
	serverservices "github.com/dmitrijs2005/passkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

// startServer runs the passkeeper server on an in-memory listener.
func startServer(t *testing.T) grpc.DialOption {
	t.Helper()
	ctx := context.Background()

	m := repomanager.NewSQLiteRepositoryManager()
	db, err := repomanager.OpenDatabase(ctx, ":memory:", m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &serverconfig.Config{}
	cfg.LoadDefaults()
	clk := clock.Real()
	srv := gs.NewGRPCServer("bufnet", logging.Nop(),
		serverservices.NewUserService(db, m, clk, cfg),
		serverservices.NewPassFileService(db, m, clk))

	lis := bufconn.Listen(1 << 20)
	sctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(sctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

// device is one CLI installation driven by scripted input.
type device struct {
	app *App
	out *bytes.Buffer
}

func newDevice(t *testing.T, dialer grpc.DialOption) *device {
	t.Helper()
	store, err := storage.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	rc, err := remote.NewGRPCClient("passthrough:///bufnet", 5*time.Second, dialer)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	out := &bytes.Buffer{}
	app := newApp(cfg, services.NewAuthService(rc, store, logging.Nop()), store, rc, clock.Real(), logging.Nop(), strings.NewReader(""), out)
	t.Cleanup(app.Close)
	return &device{app: app, out: out}
}

// run feeds lines to the REPL and returns everything it printed.
func (d *device) run(t *testing.T, lines ...string) string {
	t.Helper()
	origPrint, origTerm := printlnFn, isTerminal
	printlnFn = func(a ...any) (int, error) { return fmt.Fprintln(d.out, a...) }
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { printlnFn, isTerminal = origPrint, origTerm })

	d.out.Reset()
	d.app.reader = rdr(strings.Join(append(lines, "exit"), "\n") + "\n")
	runREPL(context.Background(), d.app, d.app.status, d.app.reader)
	return d.out.String()
}

func login(user, password string) []string {
	return []string{"login", user, password}
}

func TestApp_PassFileLifecycle(t *testing.T) {
	dev := newDevice(t, startServer(t))

	out := dev.run(t, "register", "alice", "account pw")
	assert.Contains(t, out, "Success!")

	out = dev.run(t, append(login("alice", "account pw"),
		"new pwd bank", "pp", "pp",
		"addsection -1", "mail", "https://mail.example", "hunter2=alice@example.com", "",
		"list",
	)...)
	require.NotContains(t, out, "Error:")
	assert.Contains(t, out, "Login successful")
	assert.Contains(t, out, "Created pwd passfile -1")
	assert.Contains(t, out, "    -1  pwd  bank                     v1 [local]")
	assert.Equal(t, ModeOnline, dev.app.Mode())
	assert.Contains(t, dev.app.status(), "*", "pending edits show in the prompt")

	out = dev.run(t, "commit", "sync", "list", "show 1")
	require.NotContains(t, out, "Error:")
	assert.Contains(t, out, "Committed: 1 written, 0 purged")
	assert.Contains(t, out, "uploaded")
	assert.Contains(t, out, "     1  pwd  bank                     v1\n")
	assert.Contains(t, out, "[mail] https://mail.example\n  hunter2 (alice@example.com)\n")

	out = dev.run(t, "rename 1 my bank", "sync", "delete 1", "list")
	require.NotContains(t, out, "Error:")
	assert.Contains(t, out, "info pushed")
	assert.Contains(t, out, "my bank                  v1 [deleted]")

	out = dev.run(t, "sync", "account pw", "list")
	require.NotContains(t, out, "Error:")
	assert.Contains(t, out, "deleted remotely")
	assert.Contains(t, out, "No passfiles yet")

	out = dev.run(t, "logout", "list")
	assert.Contains(t, out, "Please log in first")
	assert.False(t, dev.app.isLoggedIn())
}

func TestApp_RollbackAndGuards(t *testing.T) {
	dev := newDevice(t, startServer(t))
	dev.run(t, "register", "bob", "pw")

	out := dev.run(t, append(login("bob", "pw"),
		"new txt notes", "a", "b",
		"new zip x",
		"show 99",
		"rename 1",
	)...)
	assert.Contains(t, out, "passphrases do not match")
	assert.Contains(t, out, `unknown passfile type "zip"`)
	assert.Contains(t, out, "passfile 99")
	assert.Contains(t, out, "usage: rename <id> <name>")

	out = dev.run(t, "new txt notes", "p", "p", "logout", "rollback", "list")
	assert.Contains(t, out, ErrPendingChanges.Error())
	assert.Contains(t, out, "Changes rolled back")
	assert.Contains(t, out, "No passfiles yet")
}

func TestApp_MergeBetweenDevices(t *testing.T) {
	dialer := startServer(t)
	dev1, dev2 := newDevice(t, dialer), newDevice(t, dialer)

	dev1.run(t, "register", "carol", "pw")
	out := dev1.run(t, append(login("carol", "pw"),
		"new txt notes", "pp", "pp",
		"addsection -1", "todo", "milk", "",
		"sync",
	)...)
	require.NotContains(t, out, "Error:")

	out = dev2.run(t, append(login("carol", "pw"), "sync", "show 1", "pp")...)
	require.NotContains(t, out, "Error:")
	assert.Contains(t, out, "downloaded")
	assert.Contains(t, out, "[todo]\nmilk\n")

	out = dev1.run(t, "addsection 1", "work", "report", "", "sync")
	require.NotContains(t, out, "Error:")
	assert.Contains(t, out, "pushed")

	out = dev2.run(t, "addsection 1", "home", "plants", "", "sync")
	assert.Contains(t, out, "needs merge")
	assert.Contains(t, out, "see 'merge <id>'")

	out = dev2.run(t, "merge 1", "x", "r", "sync")
	require.NotContains(t, out, "Error:")
	assert.Contains(t, out, "1 conflict(s)")
	assert.Contains(t, out, ">>>>>>> remote")
	assert.Contains(t, out, "Merged into version 3")
	assert.Contains(t, out, "pushed")

	out = dev1.run(t, "sync", "show 1")
	require.NotContains(t, out, "Error:")
	assert.Contains(t, out, "pulled")
	for _, s := range []string{"[todo]", "[work]", "[home]"} {
		assert.Contains(t, out, s)
	}

	out = dev1.run(t, "merge 1")
	assert.Contains(t, out, "does not need a merge")
}

type fakeAuth struct {
	authenticator
	pingErr error
	closed  bool
}

func (f *fakeAuth) Ping(context.Context) error { return f.pingErr }

func (f *fakeAuth) Close() error {
	f.closed = true
	return nil
}

func TestApp_OnlineStatus(t *testing.T) {
	store, err := storage.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.LoadDefaults()
	auth := &fakeAuth{}
	app := newApp(cfg, auth, store, nil, clock.Real(), logging.Nop(), strings.NewReader(""), &bytes.Buffer{})

	app.checkOnline(context.Background())
	assert.Equal(t, Mode(""), app.Mode(), "nobody logged in")
	assert.Empty(t, app.status())

	app.setMode(ModeOnline)
	auth.pingErr = fmt.Errorf("%w: unavailable", common.ErrNetwork)
	app.checkOnline(context.Background())
	assert.Equal(t, ModeOffline, app.Mode())
	assert.Equal(t, "(offline)", app.status())

	auth.pingErr = nil
	app.checkOnline(context.Background())
	assert.Equal(t, ModeOnline, app.Mode())

	app.setMode(ModeDisabled)
	auth.pingErr = errors.New("not called")
	app.checkOnline(context.Background())
	assert.Equal(t, ModeDisabled, app.Mode())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	app.StartOnlineStatusWatcher(ctx, time.Hour)

	app.Close()
	assert.True(t, auth.closed)
}
