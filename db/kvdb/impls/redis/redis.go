// Package redis backs kvdb.Client with go-redis.
package redis

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/zeptools/certgw/db/kvdb"
)

const KVType = "redis"

type Client struct {
	conf *kvdb.Conf
	rdb  *goredis.Client
}

var _ kvdb.Client = (*Client)(nil)

// Register makes "redis" available to kvdb.New
func Register() {
	kvdb.RegisterFactory(KVType, func(conf *kvdb.Conf) (kvdb.Client, error) {
		return &Client{conf: conf}, nil
	})
}

func (c *Client) Init() error {
	timeout := c.conf.PingTimeout()
	c.rdb = goredis.NewClient(&goredis.Options{
		Addr:        net.JoinHostPort(c.conf.Host, strconv.Itoa(c.conf.Port)),
		Password:    c.conf.PW,
		DB:          c.conf.DB,
		DialTimeout: timeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return err
	}
	log.Printf("[INFO][KVDB] redis %s db %d ready", c.conf.Host, c.conf.DB)
	return nil
}

func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Client) Conf() *kvdb.Conf {
	return c.conf
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Del(ctx, keys...).Result()
}

func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.Expire(ctx, key, ttl).Result()
}

func (c *Client) SetFields(ctx context.Context, key string, fields map[string]any) error {
	return c.rdb.HSet(ctx, key, fields).Err()
}

// HGETALL on a missing key yields an empty map
func (c *Client) GetAllFields(ctx context.Context, key string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, key).Result()
}

func (c *Client) PushCapped(ctx context.Context, key string, value string, keep int64) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, value)
		if keep > 0 {
			pipe.LTrim(ctx, key, -keep, -1)
		}
		return nil
	})
	return err
}

func (c *Client) Range(ctx context.Context, key string, start int64, stop int64) ([]string, error) {
	return c.rdb.LRange(ctx, key, start, stop).Result()
}
