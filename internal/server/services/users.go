package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/clock"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/dbx"
	"github.com/dmitrijs2005/passkeeper/internal/server/auth"
	"github.com/dmitrijs2005/passkeeper/internal/server/config"
	"github.com/dmitrijs2005/passkeeper/internal/server/models"
	"github.com/dmitrijs2005/passkeeper/internal/server/repositories/repomanager"
)

// saltSize is the length of the random salt handed out for unknown users.
const saltSize = 32

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	clock                        clock.Clock
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		clock:                        clk,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// RefreshToken rotates a refresh token: the old one is revoked and a new
// pair is issued in the same transaction.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {

	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.Expires.Before(s.clock.Now()) {
		return nil, common.ErrTokenExpired
	}

	var tokenPair *TokenPair

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}

		tokenPair, err = s.generateTokenPair(ctx, tx, token.UserID)
		if err != nil {
			return fmt.Errorf("error generating token pair: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return tokenPair, nil

}

func (s *UserService) Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error) {

	if username == "" || len(salt) == 0 || len(verifier) == 0 {
		return nil, fmt.Errorf("%w: username, salt and verifier are required", common.ErrValidation)
	}

	user := &models.User{
		UserName:  username,
		Salt:      salt,
		Verifier:  verifier,
		CreatedAt: s.clock.Now(),
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// GetSalt returns the salt of userName. Unknown users get a random salt so
// that user names cannot be probed.
func (s *UserService) GetSalt(ctx context.Context, userName string) ([]byte, error) {

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.GenerateRandByteArray(saltSize), nil
		}
		return nil, common.ErrInternal
	}

	return user.Salt, nil
}

func (s *UserService) Login(ctx context.Context, userName string, verifierCandidate []byte) (*TokenPair, error) {

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}

	if !checkVerifier(user.Verifier, verifierCandidate) {
		return nil, common.ErrUnauthorized
	}

	return s.generateTokenPair(ctx, s.db, user.ID)
}

// CheckVerifier confirms that verifierCandidate proves the account
// password of userID.
func (s *UserService) CheckVerifier(ctx context.Context, userID int64, verifierCandidate []byte) error {
	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUnauthorized
		}
		return common.ErrInternal
	}
	if !checkVerifier(user.Verifier, verifierCandidate) {
		return common.ErrUnauthorized
	}
	return nil
}

// UserIDFromAccessToken validates an access token at the current time.
func (s *UserService) UserIDFromAccessToken(token string) (int64, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret, s.clock.Now())
}

func checkVerifier(verifier []byte, verifierCandidate []byte) bool {
	return subtle.ConstantTimeCompare(verifier, verifierCandidate) == 1
}

func (s *UserService) generateTokenPair(ctx context.Context, db dbx.DBTX, userID int64) (*TokenPair, error) {
	now := s.clock.Now()

	accessToken, err := auth.GenerateToken(userID, s.jwtSecret, now, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrInternal
	}

	err = s.repomanager.RefreshTokens(db).Create(ctx, userID, refreshToken, now.Add(s.refreshTokenValidityDuration))
	if err != nil {
		return nil, common.ErrInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
