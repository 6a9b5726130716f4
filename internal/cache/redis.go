package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps concept lists in Redis as JSON arrays.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps client. A non-positive ttl uses DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Dial connects to addr, which may be a redis:// URL or host:port, and
// pings it.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		var err error
		if opts, err = redis.ParseURL(addr); err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	} else {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *Redis) GetConcepts(ctx context.Context, title string) ([]string, bool, error) {
	data, err := c.client.Get(ctx, Key(title)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var concepts []string
	if err := json.Unmarshal(data, &concepts); err != nil {
		return nil, false, fmt.Errorf("decode cached concepts: %w", err)
	}
	return concepts, true, nil
}

func (c *Redis) SetConcepts(ctx context.Context, title string, concepts []string) error {
	data, err := json.Marshal(concepts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(title), data, c.ttl).Err()
}
