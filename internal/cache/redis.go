package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/teemow/gmail-ai-agent/internal/gmail"
)

// DefaultRedisPrefix namespaces the cache key.
const DefaultRedisPrefix = "gmail-ai-agent:"

// RedisStore keeps the batch as one JSON value in Redis.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore using client. The batch is stored
// under prefix+"emails"; an empty prefix means DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, key: prefix + "emails"}
}

// Key returns the Redis key holding the batch.
func (s *RedisStore) Key() string {
	return s.key
}

// Save overwrites the stored batch.
func (s *RedisStore) Save(ctx context.Context, emails []gmail.Email) error {
	if emails == nil {
		emails = []gmail.Email{}
	}
	data, err := json.Marshal(emails)
	if err != nil {
		return fmt.Errorf("failed to encode emails: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store emails in redis: %w", err)
	}
	return nil
}

// Load returns the stored batch. A missing key yields an empty batch.
func (s *RedisStore) Load(ctx context.Context) ([]gmail.Email, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []gmail.Email{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load emails from redis: %w", err)
	}

	var emails []gmail.Email
	if err := json.Unmarshal(data, &emails); err != nil {
		return nil, fmt.Errorf("failed to decode cached emails: %w", err)
	}
	if emails == nil {
		emails = []gmail.Email{}
	}
	return derive(emails), nil
}

// Get returns the cached email with id.
func (s *RedisStore) Get(ctx context.Context, id string) (gmail.Email, error) {
	emails, err := s.Load(ctx)
	if err != nil {
		return gmail.Email{}, err
	}
	return find(emails, id)
}

// Ping checks connectivity to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
