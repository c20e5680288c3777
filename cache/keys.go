package cache

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// DefaultPrefix namespaces every key written by this module
const DefaultPrefix = "poe_watch_"

// KeySpace builds namespaced cache keys so dataset entries do not collide
// with unrelated users of the same store.
type KeySpace struct {
	Prefix string
}

// NewKeySpace returns a KeySpace for prefix, falling back to DefaultPrefix
func NewKeySpace(prefix string) KeySpace {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return KeySpace{Prefix: prefix}
}

// Key returns the namespaced key for name, e.g. poe_watch_itemdata
func (ks KeySpace) Key(name string) string {
	prefix := ks.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + sanitizeKey(name)
}

// LockKey returns the key used for the shared refresh lock
func (ks KeySpace) LockKey(name string) string {
	return ks.Key(name) + ":lock"
}

// sanitizeKey replaces whitespace and separators and hashes very long names
func sanitizeKey(name string) string {
	if len(name) > 200 {
		hash := md5.Sum([]byte(name))
		return fmt.Sprintf("hash_%x", hash)
	}

	replacer := strings.NewReplacer(" ", "_", "\t", "_", "\n", "_", "/", "_", ":", "_")
	return replacer.Replace(strings.ToLower(name))
}
