package session

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the identifier under one Redis key without expiry.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	owned  bool
}

var _ Store = &RedisStore{}

// NewRedisStore wraps an existing client. The caller keeps ownership of it.
func NewRedisStore(client redis.UniversalClient, key string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis store: nil client")
	}
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key}, nil
}

// NewRedisStoreForAddr dials addr and closes the client on Close.
func NewRedisStoreForAddr(addr, key string) (*RedisStore, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis store: empty address")
	}
	s, err := NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}), key)
	if err != nil {
		return nil, err
	}
	s.owned = true
	return s, nil
}

func (s *RedisStore) Get(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, "redis store: get")
	}
	return normalizeID(v)
}

func (s *RedisStore) Set(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("redis store: empty session id")
	}
	if err := s.client.Set(ctx, s.key, id, 0).Err(); err != nil {
		return errors.Wrap(err, "redis store: set")
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errors.Wrap(err, "redis store: clear")
	}
	return nil
}

func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
