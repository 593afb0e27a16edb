// Package localstore is the durable offline mirror: a namespaced
// key/value store over a single bbolt file. It plays the role the
// browser's localStorage played for the legacy app — synchronous,
// always available, JSON blobs under a fixed prefix so unrelated data
// can share the file.
package localstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const keyPrefix = "nastar_"

var bucketName = []byte("nastar")

// Store is a namespaced JSON key/value store.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store file. The data bucket is created
// up front so every later call is a plain read/write.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save serializes v as JSON under the namespaced key.
func (s *Store) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(keyPrefix+key), data)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Load deserializes the value at key into out and reports whether a
// usable value was present. A missing key or a corrupt stored blob
// both report false; corruption never surfaces as an error, matching
// the degrade-to-empty contract of the legacy cache.
func (s *Store) Load(key string, out any) (bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get([]byte(keyPrefix + key)); v != nil {
			data = bytes.Clone(v)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete removes the value at key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(keyPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every key under the namespace prefix, leaving any
// foreign keys in the file untouched.
func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		c := b.Cursor()
		prefix := []byte(keyPrefix)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}
