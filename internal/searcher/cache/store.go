package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/cacherch/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/cacherch/pkg/redis"
)

// ErrMiss is returned by a Store when the key is absent.
var ErrMiss = errors.New("cache: key not found")

// Store is the byte-level backing store of the result cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix and returns how
	// many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
	// Describe names the store for logs and status output.
	Describe() string
}

// NewStore creates the store selected by cfg.Backend.
func NewStore(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		client, err := pkgredis.NewClient(cfg)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err, "cache.url")
		}
		return NewRedisStore(client), nil
	case config.CacheBackendMemory:
		return NewMemoryStore(cfg.MemoryCapacity, nil), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "unknown cache backend %q", cfg.Backend)
	}
}

// RedisStore keeps entries in Redis with a server-side TTL.
type RedisStore struct {
	client *pkgredis.Client
}

func NewRedisStore(client *pkgredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl)
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	return s.client.FlushByPattern(ctx, escapeGlob(prefix)+"*")
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Describe() string {
	return "redis " + s.client.Addr()
}

// escapeGlob quotes the characters Redis SCAN MATCH treats specially.
func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
