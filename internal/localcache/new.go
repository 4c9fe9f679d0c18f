package localcache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/at-ishikawa/genius/internal/config"
)

// New builds the configured backend. The returned close func releases its connections.
func New(cfg config.LocalCacheConfig) (Store, func() error, error) {
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisStore(client, ttl), client.Close, nil
	case "file", "":
		store, err := NewFileStore(cfg.Directory, ttl)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown local cache backend %q", cfg.Backend)
	}
}
