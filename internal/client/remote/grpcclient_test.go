package remote

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/clock"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/cryptox"
	"github.com/dmitrijs2005/passkeeper/internal/logging"
	"github.com/dmitrijs2005/passkeeper/internal/server/config"
	gs "github.com/dmitrijs2005/passkeeper/internal/server/grpc"
	"github.com/dmitrijs2005/passkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/passkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

var t0 = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

// startServer runs the passkeeper server on an in-memory listener and
// returns a dial option reaching it.
func startServer(t *testing.T) (grpc.DialOption, *clock.FakeClock) {
	t.Helper()
	ctx := context.Background()

	m := repomanager.NewSQLiteRepositoryManager()
	db, err := repomanager.OpenDatabase(ctx, ":memory:", m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	clk := clock.Fake(t0)
	srv := gs.NewGRPCServer("bufnet", logging.Nop(),
		services.NewUserService(db, m, clk, cfg),
		services.NewPassFileService(db, m, clk))

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
	}), clk
}

func newClient(t *testing.T, dialer grpc.DialOption) *GRPCClient {
	t.Helper()
	c, err := NewGRPCClient("passthrough:///bufnet", 5*time.Second, dialer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func registerAndLogin(t *testing.T, c *GRPCClient, user string, password []byte) {
	t.Helper()
	ctx := context.Background()

	salt := common.GenerateRandByteArray(32)
	require.NoError(t, c.Register(ctx, user, salt, cryptox.MakeVerifier(cryptox.DeriveMasterKey(password, salt))))

	got, err := c.GetSalt(ctx, user)
	require.NoError(t, err)
	require.Equal(t, salt, got)
	require.NoError(t, c.Login(ctx, user, cryptox.MakeVerifier(cryptox.DeriveMasterKey(password, got))))
}

func TestGRPCClient_PassFileLifecycle(t *testing.T) {
	dialer, _ := startServer(t)
	c := newClient(t, dialer)
	ctx := context.Background()
	password := []byte("account password")

	require.NoError(t, c.Ping(ctx))
	registerAndLogin(t, c, "alice", password)

	added, err := c.Add(ctx, models.Info{Type: models.PassFileTypePwd, Name: "mail", CreatedOn: t0, InfoChangedOn: t0})
	require.NoError(t, err)
	assert.Positive(t, added.ID)
	assert.Equal(t, 0, added.Version)
	assert.True(t, added.CreatedOn.Equal(t0))

	saved, err := c.SaveContent(ctx, added.ID, []byte("ciphertext"))
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)

	data, err := c.GetEncryptedContent(ctx, added.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), data)

	renamed := *saved
	renamed.Name = "email"
	out, err := c.SaveInfo(ctx, renamed)
	require.NoError(t, err)
	assert.Equal(t, "email", out.Name)

	list, err := c.GetList(ctx, models.PassFileTypePwd)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "email", list[0].Name)
	assert.Nil(t, list[0].Origin)

	err = c.Delete(ctx, added.ID, []byte("wrong"))
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	require.NoError(t, c.Delete(ctx, added.ID, password))

	_, err = c.GetInfo(ctx, added.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGRPCClient_RefreshesExpiredAccessToken(t *testing.T) {
	dialer, clk := startServer(t)
	c := newClient(t, dialer)
	ctx := context.Background()

	registerAndLogin(t, c, "alice", []byte("pw"))
	access, _ := c.tokens()

	clk.Advance(5 * time.Minute)

	list, err := c.GetList(ctx, models.PassFileTypeTxt)
	require.NoError(t, err)
	assert.Empty(t, list)

	refreshed, _ := c.tokens()
	assert.NotEqual(t, access, refreshed)
}

func TestGRPCClient_Errors(t *testing.T) {
	dialer, _ := startServer(t)
	c := newClient(t, dialer)
	ctx := context.Background()

	_, err := c.GetList(ctx, models.PassFileTypePwd)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.ErrorIs(t, err, common.ErrNetwork)

	err = c.Delete(ctx, 1, []byte("pw"))
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	registerAndLogin(t, c, "alice", []byte("pw"))
	err = c.Register(ctx, "alice", []byte("s"), []byte("v"))
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	_, err = c.Add(ctx, models.Info{Type: models.PassFileTypePwd})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code codes.Code
		want error
	}{
		{codes.Unavailable, common.ErrNetwork},
		{codes.DeadlineExceeded, common.ErrNetwork},
		{codes.Internal, common.ErrNetwork},
		{codes.NotFound, common.ErrNotFound},
		{codes.Unauthenticated, common.ErrUnauthorized},
		{codes.InvalidArgument, common.ErrValidation},
		{codes.AlreadyExists, common.ErrAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.ErrorIs(t, mapError(status.Error(tt.code, "x")), tt.want)
		})
	}
	assert.NoError(t, mapError(nil))
}

func TestGRPCClient_UnreachableServer(t *testing.T) {
	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return nil, net.ErrClosed
	})
	c, err := NewGRPCClient("passthrough:///nowhere", 200*time.Millisecond, dialer)
	require.NoError(t, err)
	defer c.Close()

	assert.ErrorIs(t, c.Ping(context.Background()), common.ErrNetwork)
}
