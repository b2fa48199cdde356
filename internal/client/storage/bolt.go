package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketIndex    = []byte("index")
	bucketContents = []byte("contents")
	bucketMeta     = []byte("meta")
	keyLocalID     = []byte("local_id_counter")
)

// BoltStore is the LocalStore backed by a single bbolt file. Each user gets
// a top-level bucket holding the index, content and meta sub-buckets.
// Content keys are "<id>.<version>.<type>".
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates the bbolt file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, wrapErr("open bolt", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) userBucket(tx *bolt.Tx, user string, create bool) (*bolt.Bucket, error) {
	name := []byte("user:" + user)
	if !create {
		return tx.Bucket(name), nil
	}
	b, err := tx.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, err
	}
	for _, sub := range [][]byte{bucketIndex, bucketContents, bucketMeta} {
		if _, err := b.CreateBucketIfNotExists(sub); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func indexKey(id int64) []byte {
	var k [8]byte
	// flip the sign bit so negative ids sort before positive ones
	binary.BigEndian.PutUint64(k[:], uint64(id)^(1<<63))
	return k[:]
}

func contentKey(id int64, version int, typ models.PassFileType) []byte {
	return []byte(fmt.Sprintf("%d.%d.%d", id, version, typ))
}

func (s *BoltStore) LoadList(_ context.Context, typ models.PassFileType, user string) ([]models.Info, error) {
	result := make([]models.Info, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		ub, _ := s.userBucket(tx, user, false)
		if ub == nil {
			return nil
		}
		return ub.Bucket(bucketIndex).ForEach(func(_, v []byte) error {
			var info models.Info
			if err := json.Unmarshal(v, &info); err != nil {
				return err
			}
			if info.Type == typ {
				result = append(result, info)
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapErr("load list", err)
	}
	return result, nil
}

func (s *BoltStore) SaveList(_ context.Context, typ models.PassFileType, list []models.Info, user string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		ub, err := s.userBucket(tx, user, true)
		if err != nil {
			return err
		}
		idx := ub.Bucket(bucketIndex)

		var stale [][]byte
		err = idx.ForEach(func(k, v []byte) error {
			var info models.Info
			if err := json.Unmarshal(v, &info); err != nil {
				return err
			}
			if info.Type == typ {
				stale = append(stale, bytes.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := idx.Delete(k); err != nil {
				return err
			}
		}

		for _, info := range list {
			if info.Type != typ {
				return fmt.Errorf("passfile %d has type %s, expected %s", info.ID, info.Type, typ)
			}
			data, err := json.Marshal(info)
			if err != nil {
				return err
			}
			if err := idx.Put(indexKey(info.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapErr("save list", err)
}

func (s *BoltStore) LoadEncryptedContent(_ context.Context, typ models.PassFileType, id int64, version int, user string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		ub, _ := s.userBucket(tx, user, false)
		if ub == nil {
			return common.ErrNotFound
		}
		v := ub.Bucket(bucketContents).Get(contentKey(id, version, typ))
		if v == nil {
			return common.ErrNotFound
		}
		// bbolt memory is only valid inside the transaction
		data = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("load content %d.%d", id, version), err)
	}
	return data, nil
}

func (s *BoltStore) SaveEncryptedContent(_ context.Context, typ models.PassFileType, id int64, version int, data []byte, user string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		ub, err := s.userBucket(tx, user, true)
		if err != nil {
			return err
		}
		return ub.Bucket(bucketContents).Put(contentKey(id, version, typ), data)
	})
	return wrapErr("save content", err)
}

func (s *BoltStore) DeleteEncryptedContent(_ context.Context, id int64, version int, user string) error {
	prefix := []byte(fmt.Sprintf("%d.%d.", id, version))
	err := s.db.Update(func(tx *bolt.Tx) error {
		ub, _ := s.userBucket(tx, user, false)
		if ub == nil {
			return nil
		}
		return deletePrefix(ub.Bucket(bucketContents), prefix)
	})
	return wrapErr("delete content", err)
}

func deletePrefix(b *bolt.Bucket, prefix []byte) error {
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, bytes.Clone(k))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *BoltStore) GetVersions(_ context.Context, id int64, user string) ([]int, error) {
	prefix := []byte(fmt.Sprintf("%d.", id))
	versions := make([]int, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		ub, _ := s.userBucket(tx, user, false)
		if ub == nil {
			return nil
		}
		c := ub.Bucket(bucketContents).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			parts := strings.Split(string(k), ".")
			if len(parts) != 3 {
				continue
			}
			v, err := strconv.Atoi(parts[1])
			if err != nil {
				return fmt.Errorf("bad content key %q: %w", k, err)
			}
			versions = append(versions, v)
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("get versions", err)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	return versions, nil
}

func (s *BoltStore) NextLocalID(_ context.Context, user string) (int64, error) {
	var id int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		ub, err := s.userBucket(tx, user, true)
		if err != nil {
			return err
		}
		meta := ub.Bucket(bucketMeta)
		id = -1
		if v := meta.Get(keyLocalID); v != nil {
			id = int64(binary.BigEndian.Uint64(v)) - 1
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(id))
		return meta.Put(keyLocalID, buf[:])
	})
	return id, wrapErr("next local id", err)
}
