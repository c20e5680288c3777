package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"
)

// FileStore implements Store using filesystem storage. It is meant for local
// runs where no Redis is available; every key is one JSON file.
type FileStore struct {
	dir string
	now func() time.Time
}

// fileEntry is the on-disk representation of a key
type fileEntry struct {
	FetchedAt time.Time  `json:"fetched_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Body      string     `json:"body"`
}

// NewFileStore creates a file-based store in dir.
// If dir is empty, uses ~/.poewatch_cache
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		usr, err := user.Current()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(usr.HomeDir, ".poewatch_cache")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	return &FileStore{dir: dir, now: time.Now}, nil
}

// Get implements Reader interface
func (fs *FileStore) Get(_ context.Context, key string) (string, error) {
	entry, err := fs.read(key)
	if err != nil {
		return "", err
	}
	return entry.Body, nil
}

// Exists implements Reader interface
func (fs *FileStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := fs.read(key)
	if errors.Is(err, ErrCacheNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Set implements Writer interface. A new value clears any previous TTL.
func (fs *FileStore) Set(_ context.Context, key string, blob string) error {
	return fs.write(key, &fileEntry{FetchedAt: fs.now(), Body: blob})
}

// Expire implements Writer interface
func (fs *FileStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	entry, err := fs.read(key)
	if err != nil {
		return err
	}
	expiresAt := fs.now().Add(ttl)
	entry.ExpiresAt = &expiresAt
	return fs.write(key, entry)
}

// Delete implements Writer interface
func (fs *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(fs.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Size implements Sizer interface using the stored body length
func (fs *FileStore) Size(_ context.Context, key string) (int64, error) {
	entry, err := fs.read(key)
	if err != nil {
		return 0, err
	}
	return int64(len(entry.Body)), nil
}

func (fs *FileStore) read(key string) (*fileEntry, error) {
	data, err := os.ReadFile(fs.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheNotFound
		}
		return nil, err
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache file %s: %w", key, err)
	}

	// Check if expired
	if entry.ExpiresAt != nil && !fs.now().Before(*entry.ExpiresAt) {
		_ = os.Remove(fs.path(key))
		return nil, ErrCacheNotFound
	}

	return &entry, nil
}

func (fs *FileStore) write(key string, entry *fileEntry) error {
	path := fs.path(key)

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	// Write to temporary file first, then rename (atomic operation)
	tmpPath := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// path generates the full filesystem path for a cache key
func (fs *FileStore) path(key string) string {
	return filepath.Join(fs.dir, fs.sanitizeKey(key)+".json")
}

// sanitizeKey ensures the key is safe for use as a filename
func (fs *FileStore) sanitizeKey(key string) string {
	// For very long keys, use hash to avoid filesystem limits
	if len(key) > 200 {
		hash := md5.Sum([]byte(key))
		return fmt.Sprintf("hash_%x", hash)
	}

	// Replace unsafe characters
	unsafe := []string{"/", "\\", ":", "?", "&", "=", "#", "<", ">", "|", "*", "\""}
	result := key
	for _, char := range unsafe {
		result = strings.ReplaceAll(result, char, "_")
	}

	return result
}
