// Package memory is a process-local kvdb.Client for development and tests.
// Values are stored as strings, like redis does.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/zeptools/certgw/db/kvdb"
)

const KVType = "memory"

type item struct {
	list     []string
	hash     map[string]string
	expireAt time.Time // zero: never
}

type Client struct {
	conf  *kvdb.Conf
	mu    sync.Mutex
	items map[string]*item
	now   func() time.Time
}

var _ kvdb.Client = (*Client)(nil)

// Register makes "memory" available to kvdb.New
func Register() {
	kvdb.RegisterFactory(KVType, func(conf *kvdb.Conf) (kvdb.Client, error) {
		return New(conf), nil
	})
}

func New(conf *kvdb.Conf) *Client {
	if conf == nil {
		conf = &kvdb.Conf{Type: KVType}
	}
	return &Client{conf: conf, items: make(map[string]*item), now: time.Now}
}

func (c *Client) Init() error { return nil }

func (c *Client) Close() error {
	c.mu.Lock()
	clear(c.items)
	c.mu.Unlock()
	return nil
}

func (c *Client) Conf() *kvdb.Conf { return c.conf }

func (c *Client) Ping(ctx context.Context) error {
	return ctx.Err()
}

// lookup drops key when it has expired. c.mu must be held
func (c *Client) lookup(key string) *item {
	it := c.items[key]
	if it != nil && !it.expireAt.IsZero() && !c.now().Before(it.expireAt) {
		delete(c.items, key)
		return nil
	}
	return it
}

func (c *Client) lookupOrAdd(key string) *item {
	it := c.lookup(key)
	if it == nil {
		it = &item{}
		c.items[key] = it
	}
	return it
}

func (c *Client) Delete(_ context.Context, keys ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, key := range keys {
		if c.lookup(key) != nil {
			delete(c.items, key)
			n++
		}
	}
	return n, nil
}

// Expire with a non-positive ttl removes key at once, as redis does
func (c *Client) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.lookup(key)
	switch {
	case it == nil:
		return false, nil
	case ttl <= 0:
		delete(c.items, key)
	default:
		it.expireAt = c.now().Add(ttl)
	}
	return true, nil
}

func (c *Client) SetFields(_ context.Context, key string, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.lookupOrAdd(key)
	if it.hash == nil {
		it.hash = make(map[string]string, len(fields))
	}
	for f, v := range fields {
		it.hash[f] = fmt.Sprint(v)
	}
	return nil
}

func (c *Client) GetAllFields(_ context.Context, key string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it := c.lookup(key); it != nil && it.hash != nil {
		return maps.Clone(it.hash), nil
	}
	return map[string]string{}, nil
}

func (c *Client) PushCapped(_ context.Context, key string, value string, keep int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.lookupOrAdd(key)
	it.list = append(it.list, value)
	if keep > 0 && int64(len(it.list)) > keep {
		it.list = slices.Clone(it.list[int64(len(it.list))-keep:])
	}
	return nil
}

// span maps inclusive indexes, negative ones counted from the end, onto [from, to)
func span(n int, start int64, stop int64) (int, int) {
	if start < 0 {
		start += int64(n)
	}
	if stop < 0 {
		stop += int64(n)
	}
	start = max(start, 0)
	stop = min(stop, int64(n)-1)
	if start > stop {
		return 0, 0
	}
	return int(start), int(stop) + 1
}

func (c *Client) Range(_ context.Context, key string, start int64, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.lookup(key)
	if it == nil {
		return []string{}, nil
	}
	from, to := span(len(it.list), start, stop)
	return slices.Clone(it.list[from:to]), nil
}
