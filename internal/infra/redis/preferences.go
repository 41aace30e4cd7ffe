package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/walletview/internal/infra/storage"
)

// PreferenceRepo implements storage.PreferenceRepository using Redis.
type PreferenceRepo struct {
	rdb    *redis.Client
	prefix string
}

// NewPreferenceRepo creates a Redis-backed preference repository. Keys are
// namespaced under prefix.
func NewPreferenceRepo(client *Client, prefix string) *PreferenceRepo {
	if prefix == "" {
		prefix = "walletview"
	}
	return &PreferenceRepo{
		rdb:    client.rdb,
		prefix: prefix,
	}
}

// Key helpers
func (r *PreferenceRepo) key(name string) string {
	return fmt.Sprintf("%s:pref:%s", r.prefix, name)
}

// Get returns the stored value for name.
func (r *PreferenceRepo) Get(ctx context.Context, name string) (string, error) {
	val, err := r.rdb.Get(ctx, r.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrPreferenceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get failed: %w", err)
	}
	return val, nil
}

// Set stores value under name with no expiry.
func (r *PreferenceRepo) Set(ctx context.Context, name, value string) error {
	if err := r.rdb.Set(ctx, r.key(name), value, 0).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}
