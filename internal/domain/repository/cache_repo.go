package repository

import (
	"context"
	"time"
)

// CacheRepository is a TTL-bound key-value store. The auth flow uses it to
// hold one-time OAuth state tokens.
type CacheRepository interface {
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)

	// GetDel returns the value and removes the key in a single step, so a
	// state token can only ever be consumed once.
	GetDel(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
