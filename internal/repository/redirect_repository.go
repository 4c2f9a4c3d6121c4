package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/tutor-booking-api/pkg/cache"
)

// RedirectRepository remembers which payment redirects have already been processed.
type RedirectRepository struct {
	client *redis.Client
}

// NewRedirectRepository constructs the repository. A nil client reports every redirect as new.
func NewRedirectRepository(client *redis.Client) *RedirectRepository {
	return &RedirectRepository{client: client}
}

// MarkProcessed records the fingerprint and reports whether this call was the first to do so.
func (r *RedirectRepository) MarkProcessed(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	first, err := r.client.SetNX(ctx, cache.Key("redirect", fingerprint), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return true, fmt.Errorf("redis setnx redirect %s: %w", fingerprint, err)
	}
	return first, nil
}

// Forget drops a fingerprint so a failed redirect can be retried.
func (r *RedirectRepository) Forget(ctx context.Context, fingerprint string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, cache.Key("redirect", fingerprint)).Err(); err != nil {
		return fmt.Errorf("redis delete redirect %s: %w", fingerprint, err)
	}
	return nil
}
