package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/domain/model"
)

const (
	backendRedis = "redis"

	viewedKeyPrefix = "podium:viewed:"
)

// RedisViewedStore keeps viewed flags as plain keys, one per ceremony.
type RedisViewedStore struct {
	client redis.UniversalClient
}

// NewRedisViewedStore connects to a single Redis node and pings it.
func NewRedisViewedStore(ctx context.Context, addr, password string, db int) (*RedisViewedStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisViewedStoreFromClient(client), nil
}

// NewRedisViewedStoreFromClient wraps an existing client.
func NewRedisViewedStoreFromClient(client redis.UniversalClient) *RedisViewedStore {
	return &RedisViewedStore{client: client}
}

// RedisKey returns the key holding the flag, e.g. podium:viewed:c1:2026-09:hero.
func RedisKey(key model.ViewedKey) string {
	return viewedKeyPrefix + key.String()
}

// MarkViewed sets the flag if missing.
func (s *RedisViewedStore) MarkViewed(ctx context.Context, key model.ViewedKey) error {
	defer observe(backendRedis, "mark_viewed", time.Now())
	if err := s.client.SetNX(ctx, RedisKey(key), time.Now().UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("mark viewed %s: %w", key, err)
	}
	return nil
}

// IsViewed reports whether the flag exists.
func (s *RedisViewedStore) IsViewed(ctx context.Context, key model.ViewedKey) (bool, error) {
	defer observe(backendRedis, "is_viewed", time.Now())
	n, err := s.client.Exists(ctx, RedisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("is viewed %s: %w", key, err)
	}
	return n > 0, nil
}

// Close closes the client.
func (s *RedisViewedStore) Close() { _ = s.client.Close() }

// WithViewedStore serves viewed flags from viewed while everything else comes
// from base.
func WithViewedStore(base Store, viewed ViewedStore) Store {
	return &splitStore{Store: base, viewed: viewed}
}

type splitStore struct {
	Store
	viewed ViewedStore
}

func (s *splitStore) MarkViewed(ctx context.Context, key model.ViewedKey) error {
	return s.viewed.MarkViewed(ctx, key)
}

func (s *splitStore) IsViewed(ctx context.Context, key model.ViewedKey) (bool, error) {
	return s.viewed.IsViewed(ctx, key)
}

func (s *splitStore) Close() {
	if c, ok := s.viewed.(interface{ Close() }); ok {
		c.Close()
	}
	s.Store.Close()
}
