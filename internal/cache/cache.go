// cache реализует необязательный кэш отозванных refresh-токенов поверх Redis.
//
// Кэш — только отрицательный быстрый путь: при ротации отпечаток
// использованного токена помечается отозванным, и повторное предъявление
// отклоняется до bcrypt-сравнения и похода в БД. Источником истины всегда
// остаётся условное обновление refresh-слота в хранилище, поэтому потеря
// или недоступность кэша не ослабляет гарантию одноразовости.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevokedCache — минимальный контракт кэша отозванных refresh-токенов.
// Ключ — детерминированный отпечаток токена (sha256), не сам токен.
type RevokedCache interface {
	// MarkRevoked помечает отпечаток отозванным с TTL (обычно TTL refresh-токена).
	MarkRevoked(ctx context.Context, fingerprint string, ttl time.Duration) error
	// IsRevoked сообщает, помечен ли отпечаток отозванным.
	IsRevoked(ctx context.Context, fingerprint string) (bool, error)
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:rt:".
func NewRedisCache(redisURL, prefix string) (RevokedCache, error) {
	if prefix == "" {
		prefix = "auth:rt:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(fingerprint string) string { return c.prefix + fingerprint }

func (c *redisCache) MarkRevoked(ctx context.Context, fingerprint string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}

	return c.rdb.Set(ctx, c.key(fingerprint), "1", ttl).Err()
}

func (c *redisCache) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.key(fingerprint)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (c *redisCache) Close() error { return c.rdb.Close() }
