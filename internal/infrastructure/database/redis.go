package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct{ *redis.Client }

func NewRedis(addr, pass string, db int) *RedisClient {
	return &RedisClient{redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func (c *RedisClient) Ping(ctx context.Context) error { return c.Client.Ping(ctx).Err() }

// ConnectRedis creates a client and fails fast when the server is unreachable
func ConnectRedis(ctx context.Context, addr, pass string, db int) (*RedisClient, error) {
	c := NewRedis(addr, pass, db)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", addr, err)
	}
	return c, nil
}
