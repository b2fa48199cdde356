package storage

import (
	"context"

	"github.com/dmitrijs2005/passkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/passkeeper/internal/dbx"
	bolt "go.etcd.io/bbolt"
)

// Credentials is the offline-login material of one account: the salt the
// server handed out and the verifier derived from the account password.
type Credentials struct {
	UserName string
	Salt     []byte
	Verifier []byte
}

// CredentialStore caches Credentials for offline login. LoadCredentials
// returns (nil, nil) when nothing is cached for user.
type CredentialStore interface {
	SaveCredentials(ctx context.Context, c Credentials) error
	LoadCredentials(ctx context.Context, user string) (*Credentials, error)
	ClearCredentials(ctx context.Context, user string) error
}

var (
	_ CredentialStore = (*SQLiteStore)(nil)
	_ CredentialStore = (*BoltStore)(nil)
)

var (
	keySalt     = []byte("salt")
	keyVerifier = []byte("verifier")
)

func credentialKey(user string, field []byte) string {
	return "credentials:" + user + ":" + string(field)
}

func (s *SQLiteStore) SaveCredentials(ctx context.Context, c Credentials) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, credentialKey(c.UserName, keySalt), c.Salt); err != nil {
			return err
		}
		return repo.Set(ctx, credentialKey(c.UserName, keyVerifier), c.Verifier)
	})
	return wrapErr("save credentials", err)
}

func (s *SQLiteStore) LoadCredentials(ctx context.Context, user string) (*Credentials, error) {
	repo := metadata.NewSQLiteRepository(s.db)
	salt, err := repo.Get(ctx, credentialKey(user, keySalt))
	if err != nil {
		return nil, wrapErr("load credentials", err)
	}
	verifier, err := repo.Get(ctx, credentialKey(user, keyVerifier))
	if err != nil {
		return nil, wrapErr("load credentials", err)
	}
	if salt == nil || verifier == nil {
		return nil, nil
	}
	return &Credentials{UserName: user, Salt: salt, Verifier: verifier}, nil
}

func (s *SQLiteStore) ClearCredentials(ctx context.Context, user string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, credentialKey(user, keySalt)); err != nil {
			return err
		}
		return repo.Delete(ctx, credentialKey(user, keyVerifier))
	})
	return wrapErr("clear credentials", err)
}

func (s *BoltStore) SaveCredentials(_ context.Context, c Credentials) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		ub, err := s.userBucket(tx, c.UserName, true)
		if err != nil {
			return err
		}
		meta := ub.Bucket(bucketMeta)
		if err := meta.Put(keySalt, c.Salt); err != nil {
			return err
		}
		return meta.Put(keyVerifier, c.Verifier)
	})
	return wrapErr("save credentials", err)
}

func (s *BoltStore) LoadCredentials(_ context.Context, user string) (*Credentials, error) {
	var c *Credentials
	err := s.db.View(func(tx *bolt.Tx) error {
		ub, _ := s.userBucket(tx, user, false)
		if ub == nil {
			return nil
		}
		meta := ub.Bucket(bucketMeta)
		salt, verifier := meta.Get(keySalt), meta.Get(keyVerifier)
		if salt == nil || verifier == nil {
			return nil
		}
		c = &Credentials{
			UserName: user,
			Salt:     append([]byte(nil), salt...),
			Verifier: append([]byte(nil), verifier...),
		}
		return nil
	})
	return c, wrapErr("load credentials", err)
}

func (s *BoltStore) ClearCredentials(_ context.Context, user string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		ub, _ := s.userBucket(tx, user, false)
		if ub == nil {
			return nil
		}
		meta := ub.Bucket(bucketMeta)
		if err := meta.Delete(keySalt); err != nil {
			return err
		}
		return meta.Delete(keyVerifier)
	})
	return wrapErr("clear credentials", err)
}
