package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nadzzz/domus/internal/message"
)

const redisKeyPrefix = "domus:fallback:"

// RedisOptions configures the Redis cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis shares cached interpretations between daemon instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis and pings it once.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	slog.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)

	return newRedisWithClient(client, opts.TTL), nil
}

func newRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

// Get reads an entry. Redis errors are logged and reported as a miss.
func (r *Redis) Get(ctx context.Context, key string) (message.Interpretation, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis cache get failed", "error", err)
		}
		return message.Interpretation{}, false
	}

	var v message.Interpretation
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Warn("redis cache entry corrupt", "key", key, "error", err)
		return message.Interpretation{}, false
	}
	return v, true
}

// Set writes an entry with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, v message.Interpretation) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error { return r.client.Close() }
