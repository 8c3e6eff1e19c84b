package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"foodgram/internal/cache"
)

// cached returns the JSON value under key, or calls load and stores its result.
// Cache failures degrade to calling load.
func cached[T any](ctx context.Context, c cache.Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if c != nil {
		if raw, ok, err := c.Get(ctx, key); err != nil {
			slog.Warn("cache read failed", "key", key, "error", err)
		} else if ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if c != nil {
		if raw, err := json.Marshal(v); err == nil {
			if err := c.Set(ctx, key, raw, ttl); err != nil {
				slog.Warn("cache write failed", "key", key, "error", err)
			}
		}
	}
	return v, nil
}
