package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/remote"
	"github.com/dmitrijs2005/passkeeper/internal/client/storage"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/cryptox"
	"github.com/dmitrijs2005/passkeeper/internal/logging"
)

// ErrLocalDataNotAvailable means no credentials are cached for offline
// login.
var ErrLocalDataNotAvailable = fmt.Errorf("%w: no offline credentials", common.ErrUnauthorized)

// AuthService logs users in against the server and keeps the verifier
// locally so the same account can be opened offline.
type AuthService struct {
	client remote.AuthClient
	creds  storage.CredentialStore
	logger logging.Logger
}

func NewAuthService(client remote.AuthClient, creds storage.CredentialStore, logger logging.Logger) *AuthService {
	return &AuthService{client: client, creds: creds, logger: logger.With("module", "auth")}
}

// Login tries the server first and falls back to the cached credentials
// when the server cannot be reached. online reports which one succeeded.
func (a *AuthService) Login(ctx context.Context, userName string, password []byte) (online bool, err error) {
	err = a.OnlineLogin(ctx, userName, password)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, common.ErrUnauthorized) || !errors.Is(err, common.ErrNetwork) {
		return false, err
	}

	a.logger.Warn(ctx, "server unreachable, trying offline login", "user", userName, "error", err)
	if err := a.OfflineLogin(ctx, userName, password); err != nil {
		return false, err
	}
	return false, nil
}

// OnlineLogin authenticates against the server and caches the salt and
// verifier for offline use.
func (a *AuthService) OnlineLogin(ctx context.Context, userName string, password []byte) error {
	salt, err := a.client.GetSalt(ctx, userName)
	if err != nil {
		return fmt.Errorf("get salt error: %w", err)
	}

	masterKey := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(masterKey)
	verifier := cryptox.MakeVerifier(masterKey)

	if err := a.client.Login(ctx, userName, verifier); err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := a.creds.SaveCredentials(ctx, storage.Credentials{UserName: userName, Salt: salt, Verifier: verifier}); err != nil {
		return fmt.Errorf("offline data saving error: %w", err)
	}
	a.logger.Info(ctx, "logged in", "user", userName)
	return nil
}

// OfflineLogin checks password against the cached verifier.
func (a *AuthService) OfflineLogin(ctx context.Context, userName string, password []byte) error {
	c, err := a.creds.LoadCredentials(ctx, userName)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrLocalDataNotAvailable
	}

	masterKey := cryptox.DeriveMasterKey(password, c.Salt)
	defer common.WipeByteArray(masterKey)

	if subtle.ConstantTimeCompare(c.Verifier, cryptox.MakeVerifier(masterKey)) == 0 {
		return common.ErrUnauthorized
	}
	a.logger.Info(ctx, "logged in offline", "user", userName)
	return nil
}

// Register creates an account with a fresh random salt.
func (a *AuthService) Register(ctx context.Context, userName string, password []byte) error {
	salt := common.GenerateRandByteArray(32)
	masterKey := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(masterKey)

	return a.client.Register(ctx, userName, salt, cryptox.MakeVerifier(masterKey))
}

func (a *AuthService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Logout forgets the cached credentials of userName.
func (a *AuthService) Logout(ctx context.Context, userName string) error {
	return a.creds.ClearCredentials(ctx, userName)
}

func (a *AuthService) Close() error {
	return a.client.Close()
}
