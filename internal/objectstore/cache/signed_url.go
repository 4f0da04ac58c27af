// Package cache keeps recently issued signed URLs in Redis.
package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type ObjectStore interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader) error
	Remove(ctx context.Context, paths []string) error
	PublicURL(path string) string
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// SignedURLStore decorates an ObjectStore. A cached URL is kept for half of
// its validity so callers always receive one that is usable for at least
// ttl/2. Redis failures fall through to the wrapped store.
type SignedURLStore struct {
	ObjectStore
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewSignedURLStore(store ObjectStore, client *redis.Client, bucket string, logger *slog.Logger) *SignedURLStore {
	return &SignedURLStore{
		ObjectStore: store,
		client:      client,
		prefix:      "signed_url:" + bucket + ":",
		logger:      logger.With("component", "signed_url_cache"),
	}
}

func (s *SignedURLStore) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	key := s.prefix + path

	cached, err := s.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("cache read failed", "path", path, "error", err)
	}

	signed, err := s.ObjectStore.SignedURL(ctx, path, ttl)
	if err != nil {
		return "", err
	}

	if keep := ttl / 2; keep > 0 {
		if err := s.client.Set(ctx, key, signed, keep).Err(); err != nil {
			s.logger.Warn("cache write failed", "path", path, "error", err)
		}
	}
	return signed, nil
}

// Remove deletes the objects and forgets their signed URLs.
func (s *SignedURLStore) Remove(ctx context.Context, paths []string) error {
	if err := s.ObjectStore.Remove(ctx, paths); err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = s.prefix + p
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", "paths", paths, "error", err)
	}
	return nil
}
