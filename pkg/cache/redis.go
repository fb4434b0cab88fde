package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adiwidodo/classadmin-api/pkg/config"
)

// Redis only backs the response cache on collaborator list endpoints, so
// the timeouts stay tight: a slow cache must never cost more than the
// query it shields.
const (
	dialTimeout  = 2 * time.Second
	opTimeout    = 500 * time.Millisecond
	pingDeadline = 5 * time.Second
)

// NewRedis opens and verifies a Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingDeadline)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
