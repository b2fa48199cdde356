// Package metadata is a small key/value table in the local database. It
// holds the offline-login verifier and the per-user local id counters.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Decrement(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

// LocalIDCounterKey is the metadata key of a user's negative id counter.
func LocalIDCounterKey(user string) string {
	return "local_id_counter:" + user
}
