package fetch

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var pageBucket = []byte("pages")

// PageCache keeps fetched bodies in a bbolt file, keyed by request URL.
// Each value is an 8-byte big-endian unix expiry followed by the body.
type PageCache struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// OpenPageCache opens (or creates) the cache file at path.
func OpenPageCache(path string, ttl time.Duration) (*PageCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for page cache: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open page cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pageBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &PageCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached body for key if present and not expired.
func (c *PageCache) Get(key string) (string, bool) {
	var body string
	var ok bool
	c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(pageBucket).Get([]byte(key))
		if len(v) < 8 {
			return nil
		}
		expiry := int64(binary.BigEndian.Uint64(v[:8]))
		if c.now().Unix() >= expiry {
			return nil
		}
		body = string(v[8:])
		ok = true
		return nil
	})
	return body, ok
}

func (c *PageCache) Put(key, body string) error {
	v := make([]byte, 8+len(body))
	binary.BigEndian.PutUint64(v[:8], uint64(c.now().Add(c.ttl).Unix()))
	copy(v[8:], body)

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pageBucket).Put([]byte(key), v)
	})
}

// Purge deletes expired entries and returns how many were removed.
func (c *PageCache) Purge() (int, error) {
	now := c.now().Unix()
	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pageBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if len(v) < 8 || int64(binary.BigEndian.Uint64(v[:8])) <= now {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (c *PageCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
