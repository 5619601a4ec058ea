// Package cache provides the TTL cache behind aggregation results, with
// memory, disk, and layered backends.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the backend contract. A zero TTL means the backend default.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a stable cache key from a canonical request description.
func Key(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return "newsflow:v1:" + hex.EncodeToString(sum[:])
}
