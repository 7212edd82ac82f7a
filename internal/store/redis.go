package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/i474232898/weather-prediction/internal/weather"
)

const redisKeyPrefix = "weather:history:"

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
	TTL       time.Duration // 0 keeps entries until Clear
}

// RedisStore shares cached samples between service instances.
type RedisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		namespace: opts.Namespace,
		ttl:       opts.TTL,
	}, nil
}

func (s *RedisStore) key(key weather.CacheKey) string {
	return redisKeyPrefix + s.namespace + ":" + key.String()
}

func (s *RedisStore) Get(ctx context.Context, key weather.CacheKey) (weather.HistoricalRecord, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return weather.HistoricalRecord{}, false, nil
	}
	if err != nil {
		return weather.HistoricalRecord{}, false, fmt.Errorf("failed to get from Redis: %w", err)
	}

	var entry weather.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return weather.HistoricalRecord{}, false, fmt.Errorf("%w: %s: %v", weather.ErrCorruptEntry, key, err)
	}

	rec := entry.Record
	rec.Year = key.Year
	return rec, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key weather.CacheKey, record weather.HistoricalRecord) error {
	data, err := json.Marshal(weather.CacheEntry{
		Key:      key,
		Record:   record,
		StoredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set data in Redis: %w", err)
	}
	return nil
}

// Clear deletes every key of this namespace.
func (s *RedisStore) Clear(ctx context.Context) error {
	pattern := redisKeyPrefix + s.namespace + ":*"
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
