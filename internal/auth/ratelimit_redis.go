// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/govportal/internal/config"
)

// redisUpdateRetries bounds optimistic-lock retries when concurrent
// requests from one IP race on the same key.
const redisUpdateRetries = 5

// RedisRateLimitStore shares rate limit records between processes. Every
// key carries a TTL equal to the record's remaining lifetime, so Redis
// expires records on its own and Sweep is a no-op.
type RedisRateLimitStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimitStore wraps an existing client.
func NewRedisRateLimitStore(client *redis.Client, prefix string) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client, prefix: prefix}
}

// OpenRedisRateLimitStore connects to the configured Redis and pings it.
func OpenRedisRateLimitStore(ctx context.Context, cfg *config.RedisConfig) (*RedisRateLimitStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisRateLimitStore(client, cfg.KeyPrefix), nil
}

func (s *RedisRateLimitStore) key(ip string) string {
	return s.prefix + ip
}

// Get implements RateLimitStore.
func (s *RedisRateLimitStore) Get(ctx context.Context, ip string) (*RateLimitRecord, error) {
	return readRecord(ctx, s.client, s.key(ip))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readRecord(ctx context.Context, c getter, key string) (*RateLimitRecord, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec RateLimitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode rate limit record: %w", err)
	}
	return &rec, nil
}

// Update implements RateLimitStore with WATCH/MULTI so that concurrent
// increments from one IP are never lost. The key TTL is measured from now,
// not the wall clock, so it agrees with the limiter's ExpiresAt.
func (s *RedisRateLimitStore) Update(ctx context.Context, ip string, now time.Time, fn func(*RateLimitRecord) *RateLimitRecord) (*RateLimitRecord, error) {
	key := s.key(ip)
	var result *RateLimitRecord

	txf := func(tx *redis.Tx) error {
		cur, err := readRecord(ctx, tx, key)
		if err != nil {
			return err
		}
		next := fn(cur)
		result = next

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
				return nil
			}
			data, err := json.Marshal(next)
			if err != nil {
				return err
			}
			ttl := next.ExpiresAt.Sub(now)
			if ttl <= 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < redisUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("rate limit update for %s: too much contention", ip)
}

// Delete implements RateLimitStore.
func (s *RedisRateLimitStore) Delete(ctx context.Context, ip string) error {
	return s.client.Del(ctx, s.key(ip)).Err()
}

// Sweep implements RateLimitStore. Key TTLs already did the work.
func (s *RedisRateLimitStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Close closes the client.
func (s *RedisRateLimitStore) Close() error {
	return s.client.Close()
}

// OpenRateLimitStore builds the store named by cfg.Store.
func OpenRateLimitStore(ctx context.Context, cfg *config.Config) (RateLimitStore, error) {
	switch cfg.RateLimit.Store {
	case "", "memory":
		return NewMemoryRateLimitStore(), nil
	case "redis":
		return OpenRedisRateLimitStore(ctx, &cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", cfg.RateLimit.Store)
	}
}
