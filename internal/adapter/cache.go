package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("responses")

// ResponseCache memoizes adapter invocations by a hash of (adapter, prompt,
// workingDir) so an identical retry within the same session (e.g. a
// re-issued EXECUTING prompt after a transient scheduler hiccup) doesn't
// re-spend provider budget. Enabled by config.tui.cacheEnabled. Backed by a
// single embedded bbolt file under the workspace's .orchestra/ directory,
// consistent with the engine's local-filesystem-only persistence.
type ResponseCache struct {
	db *bolt.DB
}

type cachedEntry struct {
	Result    Result    `json:"result"`
	StoredAt  time.Time `json:"storedAt"`
}

// OpenResponseCache opens (creating if absent) the cache file at path.
func OpenResponseCache(path string) (*ResponseCache, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init response cache bucket: %w", err)
	}
	return &ResponseCache{db: db}, nil
}

// Close releases the underlying bbolt file lock.
func (c *ResponseCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Key derives a stable cache key for one invocation.
func Key(adapterName, prompt, workingDir string) string {
	h := sha256.New()
	h.Write([]byte(adapterName))
	h.Write([]byte{0})
	h.Write([]byte(workingDir))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns a cached Result and true if present.
func (c *ResponseCache) Lookup(key string) (Result, bool) {
	if c == nil || c.db == nil {
		return Result{}, false
	}
	var entry cachedEntry
	found := false
	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(cacheBucket)
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil
		}
		found = true
		return nil
	})
	return entry.Result, found
}

// Store persists a Result under key.
func (c *ResponseCache) Store(key string, result Result) error {
	if c == nil || c.db == nil {
		return nil
	}
	entry := cachedEntry{Result: result, StoredAt: time.Now()}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(key), raw)
	})
}
