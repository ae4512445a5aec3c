package throttle

import (
	"fmt"
	"sync"
	"time"
)

// BucketConf describes a token bucket: Burst tokens at most, Increment tokens added every Period
type BucketConf struct {
	Burst     int           `json:"burst"`
	Increment int           `json:"increment"`
	Period    time.Duration `json:"period,format:units"` // e.g. "2s"
}

func (c *BucketConf) Validate() error {
	if c.Burst <= 0 || c.Increment <= 0 || c.Period <= 0 {
		return fmt.Errorf("throttle: burst, increment and period must be positive (got %d, %d, %s)", c.Burst, c.Increment, c.Period)
	}
	return nil
}

// Bucket is one client's token bucket
type Bucket struct {
	mu       sync.Mutex
	conf     *BucketConf
	tokens   int
	refilled time.Time // start of the current refill period
	lastSeen time.Time
}

func newBucket(conf *BucketConf, now time.Time) *Bucket {
	return &Bucket{conf: conf, tokens: conf.Burst, refilled: now, lastSeen: now}
}

// refill adds the increments of every whole period since refilled. Caller holds mu.
func (b *Bucket) refill(now time.Time) {
	periods := int(now.Sub(b.refilled) / b.conf.Period)
	if periods <= 0 {
		return
	}
	b.tokens = min(b.conf.Burst, b.tokens+periods*b.conf.Increment)
	b.refilled = b.refilled.Add(time.Duration(periods) * b.conf.Period)
}

// Take consumes one token. When none is left it reports how long until the next refill.
func (b *Bucket) Take(now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen = now
	b.refill(now)
	if b.tokens > 0 {
		b.tokens--
		return true, 0
	}
	return false, b.refilled.Add(b.conf.Period).Sub(now)
}

func (b *Bucket) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}
