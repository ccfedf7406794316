package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service stores JSON-encoded values. Get decodes into dest.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern removes keys matching a Redis-style glob.
	DeleteByPattern(ctx context.Context, pattern string) error
	// TryLock claims key for ttl. It reports false if someone else holds it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Close() error
}

// Key joins a prefix and parts with ':', e.g. Key("candles", "BTC", "1h").
func Key(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}
