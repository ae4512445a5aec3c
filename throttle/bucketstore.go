package throttle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zeptools/certgw/svc"
)

// BucketStore keeps named bucket groups. As a service it periodically evicts idle buckets.
type BucketStore[K comparable] struct {
	*svc.Lifecycle
	cycle     time.Duration
	olderThan time.Duration
	mu        sync.RWMutex
	groups    map[string]*BucketGroup[K]
}

var _ svc.Service = (*BucketStore[string])(nil)

func NewBucketStore[K comparable](parentCtx context.Context, cleanupCycle time.Duration, cleanupOlderThan time.Duration) *BucketStore[K] {
	return &BucketStore[K]{
		Lifecycle: svc.NewLifecycle(parentCtx, "ThrottleBucketStore"),
		cycle:     cleanupCycle,
		olderThan: cleanupOlderThan,
		groups:    make(map[string]*BucketGroup[K]),
	}
}

func (s *BucketStore[K]) Start() error {
	if err := s.Begin(); err != nil {
		return err
	}
	log.Printf("[INFO][THROTTLE] started: cleanup every %v, idle after %v", s.cycle, s.olderThan)
	go s.run()
	return nil
}

// Stop is a no-op for a store that never started
func (s *BucketStore[K]) Stop() {
	if s.State() != svc.StateRUNNING {
		return
	}
	s.Lifecycle.Stop()
}

func (s *BucketStore[K]) run() {
	ticker := time.NewTicker(s.cycle)
	defer ticker.Stop()
	for {
		select {
		case <-s.Ctx.Done():
			s.Finish(nil)
			return
		case now := <-ticker.C:
			if n := s.Cleanup(now); n > 0 {
				log.Printf("[INFO][THROTTLE] %d idle buckets removed", n)
			}
		}
	}
}

func (s *BucketStore[K]) GetBucketGroup(groupID string) (*BucketGroup[K], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	return g, ok
}

func (s *BucketStore[K]) GetBucket(groupID string, key K) (*Bucket, bool) {
	g, ok := s.GetBucketGroup(groupID)
	if !ok {
		return nil, false
	}
	return g.GetBucket(key)
}

// SetBucketGroup installs or replaces a group. Replacing drops its buckets.
func (s *BucketStore[K]) SetBucketGroup(groupID string, conf *BucketConf) error {
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("group %s: %w", groupID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[groupID] = &BucketGroup[K]{conf: conf}
	return nil
}

// Take consumes a token of key in groupID. An unknown group never allows.
func (s *BucketStore[K]) Take(groupID string, key K, now time.Time) (bool, time.Duration) {
	g, ok := s.GetBucketGroup(groupID)
	if !ok {
		return false, 0
	}
	return g.bucket(key, now).Take(now)
}

func (s *BucketStore[K]) Allow(groupID string, key K, now time.Time) bool {
	ok, _ := s.Take(groupID, key, now)
	return ok
}

// Cleanup removes buckets idle for longer than the configured age
func (s *BucketStore[K]) Cleanup(now time.Time) int {
	cutoff := now.Add(-s.olderThan)
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, g := range s.groups {
		n += g.evict(cutoff)
	}
	return n
}
