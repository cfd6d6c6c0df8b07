// Package cache stores geocode responses so reruns over the same book (or
// different books naming the same places) skip repeat lookups. Successful
// answers get cached, both resolutions and genuine no-matches; service
// errors never do.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"
)

// Cache is the storage the geocode resolver works against.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Clear() error
}

// DefaultDir returns the disk cache location used when none is configured.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bookgeo", "cache"), nil
}

// Key builds the stable cache key for one lookup. Language is part of the
// key because the geocoding service localizes its answers.
func Key(language, normalizedName string) string {
	sum := sha256.Sum256([]byte(language + "\x00" + normalizedName))
	return "geo:v1:" + hex.EncodeToString(sum[:])
}
