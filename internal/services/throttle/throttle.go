// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package throttle limits how often enumeration-sensitive actions may be
// triggered for the same email address.
package throttle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttled actions.
const (
	ActionResendVerification = "resend_verification"
	ActionPasswordReset      = "password_reset"
)

const keyPrefix = "throttle:"

// Limiter decides whether an action may run for a subject.
type Limiter interface {
	Allow(ctx context.Context, action, subject string) bool
}

// Noop allows everything. It is used when no Redis is configured.
type Noop struct{}

// Allow always returns true.
func (Noop) Allow(context.Context, string, string) bool {
	return true
}

// RedisLimiter is a fixed-window counter per action and subject.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
}

// NewRedis creates a limiter allowing limit calls per window.
func NewRedis(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: int64(limit), window: window}
}

// Allow counts the call and reports whether it is within the limit. Redis
// errors fail open.
func (l *RedisLimiter) Allow(ctx context.Context, action, subject string) bool {
	key := Key(action, subject)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("throttle_unavailable", "action", action, "error", err)
		return true
	}

	// First hit opens the window.
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			slog.Warn("throttle_expire_failed", "action", action, "error", err)
		}
	}

	if count > l.limit {
		slog.Info("throttled", "action", action, "count", count)
		return false
	}
	return true
}

// Key builds the Redis key. Subjects are hashed so no email addresses are
// stored in Redis.
func Key(action, subject string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(subject))))
	return keyPrefix + action + ":" + hex.EncodeToString(sum[:])
}

// Connect parses a Redis URL and verifies the connection.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
