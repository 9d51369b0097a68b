package redisclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *redis.Client
}

// Config takes either a host:port address or a redis:// / rediss:// URL.
// Password and DB override whatever the URL carries when set.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

func options(cfg Config) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Addr}

	if strings.HasPrefix(cfg.Addr, "redis://") || strings.HasPrefix(cfg.Addr, "rediss://") {
		parsed, err := redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	opts.DialTimeout = 2 * time.Second
	// Dequeue blocks server-side, so reads get headroom over the poll wait
	opts.ReadTimeout = 10 * time.Second
	opts.WriteTimeout = 2 * time.Second
	return opts, nil
}

func New(cfg Config) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{rdb: redis.NewClient(opts)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the underlying client to the job queue.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}
