package throttle

import (
	"sync"
	"time"
)

// BucketGroup holds the buckets sharing one BucketConf, one per client key
type BucketGroup[K comparable] struct {
	conf    *BucketConf
	buckets sync.Map // K -> *Bucket
}

func (g *BucketGroup[K]) GetBucket(key K) (*Bucket, bool) {
	b, ok := g.buckets.Load(key)
	if !ok {
		return nil, false
	}
	return b.(*Bucket), true
}

// bucket returns the bucket of key, creating a full one on first use
func (g *BucketGroup[K]) bucket(key K, now time.Time) *Bucket {
	if b, ok := g.buckets.Load(key); ok {
		return b.(*Bucket)
	}
	b, _ := g.buckets.LoadOrStore(key, newBucket(g.conf, now))
	return b.(*Bucket)
}

// evict drops buckets not used since before cutoff
func (g *BucketGroup[K]) evict(cutoff time.Time) int {
	n := 0
	g.buckets.Range(func(key, b any) bool {
		if b.(*Bucket).idleSince().Before(cutoff) {
			g.buckets.Delete(key)
			n++
		}
		return true
	})
	return n
}
