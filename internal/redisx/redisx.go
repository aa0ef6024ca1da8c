package redisx

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/conforma/remitos-api/internal/config"
	"github.com/redis/go-redis/v9"
)

// New returns nil when no address is configured.
func New(cfg config.Redis) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// Ping is a bounded startup check; callers log and continue on failure.
func Ping(ctx context.Context, c *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return c.Ping(ctx).Err()
}
