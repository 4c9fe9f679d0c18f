package localcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "genius:local:"

// RedisStore keeps one hash per index, field = entry id
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (store *RedisStore) key(index string) string {
	return redisKeyPrefix + index
}

func (store *RedisStore) Add(ctx context.Context, entry Entry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SavedAt.IsZero() {
		entry.SavedAt = store.now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("json.Marshal > %w", err)
	}

	key := store.key(entry.Index)
	pipe := store.client.TxPipeline()
	pipe.HSet(ctx, key, entry.ID, data)
	if store.ttl > 0 {
		pipe.Expire(ctx, key, store.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("redis HSET %s > %w", key, err)
	}
	return entry.ID, nil
}

func (store *RedisStore) GetByIndex(ctx context.Context, index string) ([]Entry, error) {
	key := store.key(index)
	values, err := store.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s > %w", key, err)
	}
	entries := make([]Entry, 0, len(values))
	for id, value := range values {
		var entry Entry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			return nil, fmt.Errorf("json.Unmarshal(%s) > %w", id, err)
		}
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries, nil
}

func (store *RedisStore) DeleteByIndex(ctx context.Context, index string) error {
	key := store.key(index)
	if err := store.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL %s > %w", key, err)
	}
	return nil
}
