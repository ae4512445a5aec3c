package kvdb

import (
	"context"
	"log"
	"time"
)

// Client is the key-value backend holding bulk progress and run history.
// Hash and list semantics follow redis: values come back as strings, missing keys read as empty.
type Client interface {
	Init() error
	Close() error
	Conf() *Conf
	Ping(ctx context.Context) error

	Delete(ctx context.Context, keys ...string) (int64, error)
	// Expire sets the ttl of key. It reports false when key does not exist
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	SetFields(ctx context.Context, key string, fields map[string]any) error
	GetAllFields(ctx context.Context, key string) (map[string]string, error)

	// PushCapped appends value to the list at key and keeps only its newest keep entries.
	// Both steps apply atomically.
	PushCapped(ctx context.Context, key string, value string, keep int64) error
	// Range reads list entries start..stop inclusive. Negative indexes count from the end
	Range(ctx context.Context, key string, start int64, stop int64) ([]string, error)
}

func CloseClient(name string, c Client) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Printf("[WARN][KVDB] close `%s`: %v", name, err)
		return
	}
	log.Printf("[INFO][KVDB] `%s` closed", name)
}
