package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/season-qa/backend/pkg/logger"
)

const metricPrefix = "season_qa:metric:"

// Client keeps counters shared by every API instance. Answers themselves
// are never cached: each request re-reads the store.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

// NewFromRedis wraps an existing go-redis client.
func NewFromRedis(client *redis.Client) *Client {
	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) IncrementMetric(ctx context.Context, metricName string) error {
	return c.client.Incr(ctx, metricPrefix+metricName).Err()
}

// Metrics returns every counter whose name starts with prefix.
func (c *Client) Metrics(ctx context.Context, prefix string) (map[string]int64, error) {
	out := make(map[string]int64)

	iter := c.client.Scan(ctx, 0, metricPrefix+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := c.client.Get(ctx, key).Int64()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read counter %s: %w", key, err)
		}
		out[strings.TrimPrefix(key, metricPrefix)] = val
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counters: %w", err)
	}

	return out, nil
}
