package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/parceldeck/broker/internal/addressbook"
	"github.com/redis/go-redis/v9"
)

const addressKeyPrefix = "broker:address:"

// RedisAddressStore keeps address cache entries in redis. The key TTL doubles
// as the time-based janitor: entries that stop being touched simply expire.
type RedisAddressStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAddressStore creates an address store over client. A zero ttl
// disables expiry.
func NewRedisAddressStore(client *redis.Client, ttl time.Duration) *RedisAddressStore {
	return &RedisAddressStore{client: client, ttl: ttl}
}

func (s *RedisAddressStore) Get(ctx context.Context, hash string) (*addressbook.Entry, error) {
	raw, err := s.client.Get(ctx, addressKeyPrefix+hash).Result()
	if errors.Is(err, redis.Nil) {
		return nil, addressbook.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var entry addressbook.Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("decoding address entry: %w", err)
	}
	return &entry, nil
}

func (s *RedisAddressStore) Upsert(ctx context.Context, entry *addressbook.Entry) error {
	entry.UpdatedAt = time.Now()
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding address entry: %w", err)
	}
	if err := s.client.Set(ctx, addressKeyPrefix+entry.Hash, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
