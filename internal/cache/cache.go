// Package cache stores fallback interpretations so a repeated ambiguous
// command does not pay for a second model call.
//
// Keys are derived from the normalized utterance and the device index
// version, so a reload implicitly invalidates every earlier answer.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/nadzzz/domus/internal/config"
	"github.com/nadzzz/domus/internal/message"
)

// Cache is a best-effort interpretation store. Misses and backend failures
// look the same to callers.
type Cache interface {
	Get(ctx context.Context, key string) (message.Interpretation, bool)
	Set(ctx context.Context, key string, v message.Interpretation) error
	Close() error
}

// Key derives the cache key of a normalized utterance under an index version.
func Key(normalized string, version uint64) string {
	h := sha256.Sum256([]byte(strconv.FormatUint(version, 10) + "\x00" + normalized))
	return hex.EncodeToString(h[:])[:32]
}

// New builds the cache selected by cfg. The "none" backend returns a nil
// Cache, which callers treat as disabled.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewLRU(cfg.Capacity, cfg.TTL), nil
	case "redis":
		r, err := NewRedis(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
