package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"workspace-assistant/internal/config"
)

// Subscription is a confirmed channel subscription.
type Subscription interface {
	Channel() <-chan *redis.Message
	Close() error
}

type Client struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:        cfg.URL,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &Client{cli: c}, nil
}

func (c *Client) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.cli.Publish(ctx, channel, payload).Err()
}

// Subscribe blocks until redis confirms the subscription.
func (c *Client) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := c.cli.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return redisSubscription{sub}, nil
}

type redisSubscription struct {
	ps *redis.PubSub
}

func (s redisSubscription) Channel() <-chan *redis.Message { return s.ps.Channel() }
func (s redisSubscription) Close() error                   { return s.ps.Close() }

func (c *Client) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return c.cli.SetNX(ctx, key, value, ttl).Result()
}

var luaDelIfValue = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// DelIfValue deletes key only while it still holds value.
func (c *Client) DelIfValue(ctx context.Context, key, value string) error {
	return luaDelIfValue.Run(ctx, c.cli, []string{key}, value).Err()
}

func (c *Client) Close() error { return c.cli.Close() }
