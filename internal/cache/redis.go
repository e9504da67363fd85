// Package cache holds the shared Redis client plus the lookup, page and
// invalidation helpers built on it. Every helper is a no-op or a passthrough
// while the client is nil, so the site keeps serving when Redis is down.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quill/internal/middleware"
	"quill/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// errorCounter feeds failed commands into the redis_errors_total metric.
// Cache misses (redis.Nil) are not failures.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure("pipeline", err)
		return err
	}
}

func countFailure(command string, err error) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	observability.RedisErrors.WithLabelValues(command).Inc()
}

// clientOptions accepts either a redis:// URL or a bare host:port.
func clientOptions(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr, DialTimeout: 2 * time.Second}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// InitRedis connects to addr and installs the result as the package client.
// It returns nil, leaving caching disabled, when addr is malformed or the
// server does not answer a PING within five seconds.
func InitRedis(addr string) *redis.Client {
	client = nil

	opts, err := clientOptions(addr)
	if err != nil {
		middleware.Logger.Warn("cache disabled", slog.String("error", err.Error()))
		return nil
	}

	c := redis.NewClient(opts)
	c.AddHook(errorCounter{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("cache disabled, redis unreachable",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
		_ = c.Close()
		return nil
	}

	middleware.Logger.Info("redis connected", slog.String("addr", opts.Addr))
	client = c
	return c
}

// SetClient replaces the package client. Passing nil disables caching.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the package client, nil while caching is disabled.
func GetClient() *redis.Client {
	return client
}
