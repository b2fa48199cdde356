package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/passkeeper/internal/clock"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/dbx"
	"github.com/dmitrijs2005/passkeeper/internal/server/config"
	"github.com/dmitrijs2005/passkeeper/internal/server/models"
	passfilesrepo "github.com/dmitrijs2005/passkeeper/internal/server/repositories/passfiles"
	refreshtokensrepo "github.com/dmitrijs2005/passkeeper/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/passkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newUserService(t *testing.T, db *sql.DB, rm *fakeRepoManager) (*UserService, *clock.FakeClock) {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Minute,
		RefreshTokenValidityDuration: time.Hour,
	}
	clk := clock.Fake(t0)
	return NewUserService(db, rm, clk, cfg), clk
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr    error
	createErr error

	created []time.Time
	deleted []string
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID int64, token string, expires time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, expires)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) PassFiles(db dbx.DBTX) passfilesrepo.Repository         { return nil }

func TestRefreshToken_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	refresh := &fakeRefreshRepo{
		findOut: &models.RefreshToken{UserID: 1, Expires: t0.Add(10 * time.Minute)},
	}
	s, _ := newUserService(t, db, &fakeRepoManager{r: refresh})

	pair, err := s.RefreshToken(context.Background(), "refresh-xyz")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, []string{"refresh-xyz"}, refresh.deleted)
	assert.Equal(t, []time.Time{t0.Add(time.Hour)}, refresh.created)
	assert.NoError(t, mock.ExpectationsWereMet())

	uid, err := s.UserIDFromAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), uid)
}

func TestRefreshToken_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: 1, Expires: t0.Add(-time.Minute)},
		},
	}
	s, _ := newUserService(t, db, rm)

	_, err := s.RefreshToken(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestRefreshToken_Unknown(t *testing.T) {
	db, _ := newSQLMockDB(t)

	s, _ := newUserService(t, db, &fakeRepoManager{r: &fakeRefreshRepo{findErr: common.ErrNotFound}})

	_, err := s.RefreshToken(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRefreshToken_FindErr(t *testing.T) {
	db, _ := newSQLMockDB(t)

	s, _ := newUserService(t, db, &fakeRepoManager{r: &fakeRefreshRepo{findErr: errBoom{}}})

	_, err := s.RefreshToken(context.Background(), "r")
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`error searching refresh token: .*boom`), err.Error())
}

func TestRefreshToken_DeleteErr(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: 1, Expires: t0.Add(10 * time.Minute)},
			delErr:  errBoom{},
		},
	}
	s, _ := newUserService(t, db, rm)

	_, err := s.RefreshToken(context.Background(), "r")
	require.Error(t, err)
	assert.Regexp(t, `error deleting refresh token: .*boom`, err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_CreateErr(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut:   &models.RefreshToken{UserID: 1, Expires: t0.Add(10 * time.Minute)},
			createErr: errBoom{},
		},
	}
	s, _ := newUserService(t, db, rm)

	_, err := s.RefreshToken(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrInternal)
	assert.Regexp(t, `error generating token pair:`, err.Error())
}

func TestRegister(t *testing.T) {
	db, _ := newSQLMockDB(t)

	sOK, _ := newUserService(t, db, &fakeRepoManager{
		u: &fakeUsersRepo{createOut: &models.User{ID: 42, UserName: "alice"}},
	})
	u, err := sOK.Register(context.Background(), "alice", []byte("s"), []byte("v"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)

	sTaken, _ := newUserService(t, db, &fakeRepoManager{
		u: &fakeUsersRepo{createErr: common.ErrAlreadyExists},
	})
	_, err = sTaken.Register(context.Background(), "alice", []byte("s"), []byte("v"))
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
	assert.Regexp(t, `error creating user:`, err.Error())

	_, err = sOK.Register(context.Background(), "", []byte("s"), []byte("v"))
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = sOK.Register(context.Background(), "bob", nil, []byte("v"))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestGetSalt(t *testing.T) {
	db, _ := newSQLMockDB(t)

	s, _ := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getOut: &models.User{Salt: []byte("SALT")}}})
	salt, err := s.GetSalt(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("SALT"), salt)

	sNF, _ := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrNotFound}})
	salt2, err := sNF.GetSalt(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Len(t, salt2, saltSize)

	sErr, _ := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getErr: errBoom{}}})
	_, err = sErr.GetSalt(context.Background(), "xx")
	assert.ErrorIs(t, err, common.ErrInternal)
}

func TestLogin(t *testing.T) {
	db, _ := newSQLMockDB(t)
	right := &models.User{ID: 7, Verifier: []byte("right")}

	tests := []struct {
		name     string
		repo     *fakeUsersRepo
		verifier string
		wantErr  error
	}{
		{"unknown user", &fakeUsersRepo{getErr: common.ErrNotFound}, "x", common.ErrUnauthorized},
		{"db failure", &fakeUsersRepo{getErr: errBoom{}}, "x", common.ErrInternal},
		{"wrong verifier", &fakeUsersRepo{getOut: right}, "wrong", common.ErrUnauthorized},
		{"ok", &fakeUsersRepo{getOut: right}, "right", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newUserService(t, db, &fakeRepoManager{u: tt.repo, r: &fakeRefreshRepo{}})
			pair, err := s.Login(context.Background(), "u", []byte(tt.verifier))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, pair.AccessToken)
			assert.NotEmpty(t, pair.RefreshToken)
		})
	}
}

func TestCheckVerifier(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s, _ := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getOut: &models.User{ID: 7, Verifier: []byte("right")}}})

	assert.NoError(t, s.CheckVerifier(context.Background(), 7, []byte("right")))
	assert.ErrorIs(t, s.CheckVerifier(context.Background(), 7, []byte("nope")), common.ErrUnauthorized)

	sNF, _ := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrNotFound}})
	assert.ErrorIs(t, sNF.CheckVerifier(context.Background(), 7, []byte("right")), common.ErrUnauthorized)
}

func TestUserIDFromAccessToken_Expires(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s, clk := newUserService(t, db, &fakeRepoManager{
		u: &fakeUsersRepo{getOut: &models.User{ID: 9, Verifier: []byte("v")}},
		r: &fakeRefreshRepo{},
	})

	pair, err := s.Login(context.Background(), "u", []byte("v"))
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = s.UserIDFromAccessToken(pair.AccessToken)
	assert.True(t, errors.Is(err, common.ErrTokenExpired), "got %v", err)
}
