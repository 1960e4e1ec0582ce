package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/quickmark/internal/store"
)

// Store is a store.Backend on top of a Redis client. Keys never expire.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore creates a Redis backend. An empty prefix uses DefaultPrefix.
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

// Get returns store.ErrNotFound for unknown keys.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, Key(s.prefix, name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", name, err)
	}
	return data, nil
}

// SetMany writes all values inside MULTI/EXEC.
func (s *Store) SetMany(ctx context.Context, values map[string][]byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for name, v := range values {
			pipe.Set(ctx, Key(s.prefix, name), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save values: %w", err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored.
func (s *Store) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}

	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, Key(s.prefix, name))
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Names lists the local keys currently stored under the prefix.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		names  []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		for _, k := range keys {
			if name, ok := ExtractName(s.prefix, k); ok {
				names = append(names, name)
			}
		}
		cursor = next
		if cursor == 0 {
			return names, nil
		}
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
