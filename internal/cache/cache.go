package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Cache is an on-disk store of per-file analysis results. An entry is only
// served while the content hash it was stored with still matches, so
// edited files are recomputed even before they expire.
//
// Entries live in two-character shard directories below the cache root.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is the JSON document stored per key.
type Entry struct {
	Key       string    `json:"key"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"`
}

func (e *Entry) expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(e.Timestamp) > ttl
}

// New opens the cache rooted at dir, creating it if needed. A disabled
// cache ignores writes and always misses. ttlHours <= 0 disables expiry.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: time.Duration(ttlHours) * time.Hour, enabled: true}, nil
}

// Enabled reports whether the cache stores entries. A nil cache is
// disabled.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// Dir is the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// HashBytes is the hex BLAKE3 digest of data.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint condenses the settings a result depends on. Parts are
// NUL-separated so ("ab", "c") and ("a", "bc") differ.
func Fingerprint(parts ...string) string {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// FileKey is the key for path analyzed under fingerprint. Relative paths
// are made absolute so the same file is shared between working
// directories.
func FileKey(path, fingerprint string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return fingerprint + ":" + path
}

func (c *Cache) keyPath(key string) string {
	name := fmt.Sprintf("%016x", xxhash.Sum64String(key))
	return filepath.Join(c.dir, name[:2], name+".json")
}

func readEntry(path string) (*Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Get returns the data stored for key if it was computed from content with
// the given hash and has not expired. Expired entries are removed.
func (c *Cache) Get(key, hash string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	path := c.keyPath(key)
	e, err := readEntry(path)
	if err != nil || e.Key != key || e.Hash != hash {
		return nil, false
	}
	if e.expired(c.ttl, time.Now()) {
		_ = os.Remove(path)
		return nil, false
	}
	return e.Data, true
}

// Set stores data for key. The entry is written to a temporary file and
// renamed into place so concurrent readers never see a partial entry.
func (c *Cache) Set(key, hash string, data []byte) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(Entry{Key: key, Hash: hash, Timestamp: time.Now(), Data: data})
	if err != nil {
		return err
	}

	path := c.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Invalidate drops the entry for key, if any.
func (c *Cache) Invalidate(key string) error {
	if !c.Enabled() {
		return nil
	}
	err := os.Remove(c.keyPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes the cache directory and everything in it.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// Prune removes expired and unreadable entries and returns how many were
// removed.
func (c *Cache) Prune() (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	now := time.Now()
	removed := 0
	err := c.eachEntry(func(path string, e *Entry, _ fs.FileInfo) error {
		if e != nil && !e.expired(c.ttl, now) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	Expired   int           `json:"expired"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// GetStats scans the cache directory. Ages come from the entries' own
// timestamps.
func (c *Cache) GetStats() (*Stats, error) {
	stats := &Stats{}
	if !c.Enabled() {
		return stats, nil
	}

	now := time.Now()
	var oldest, newest time.Time
	err := c.eachEntry(func(_ string, e *Entry, info fs.FileInfo) error {
		stats.Entries++
		stats.TotalSize += info.Size()
		if e == nil {
			stats.Expired++
			return nil
		}
		if e.expired(c.ttl, now) {
			stats.Expired++
		}
		if oldest.IsZero() || e.Timestamp.Before(oldest) {
			oldest = e.Timestamp
		}
		if newest.IsZero() || e.Timestamp.After(newest) {
			newest = e.Timestamp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = now.Sub(oldest)
		stats.NewestAge = now.Sub(newest)
	}
	return stats, nil
}

// eachEntry calls fn for every entry file. Unreadable entries are passed
// with a nil Entry. A missing cache directory has no entries.
func (c *Cache) eachEntry(fn func(path string, e *Entry, info fs.FileInfo) error) error {
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		e, err := readEntry(path)
		if err != nil {
			e = nil
		}
		return fn(path, e, info)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
