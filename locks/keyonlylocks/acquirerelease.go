// Package keyonlylocks implements non-blocking named locks on a shared sync.Map.
// A key is held while it is present in the map.
package keyonlylocks

import "sync"

// TryLock takes key, or reports false when someone holds it
func TryLock(lockStore *sync.Map, key string) (release func(), ok bool) {
	if _, held := lockStore.LoadOrStore(key, struct{}{}); held {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { lockStore.Delete(key) }) }, true
}

// AcquireLocks takes all keys or none
func AcquireLocks(lockStore *sync.Map, keys []string) ([]string, bool) {
	acquired := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, held := lockStore.LoadOrStore(key, struct{}{}); held {
			ReleaseLocks(lockStore, acquired)
			return nil, false
		}
		acquired = append(acquired, key)
	}
	return acquired, true
}

// ReleaseLocks frees keys. Call it deferred so a panic still releases them.
func ReleaseLocks(lockStore *sync.Map, keys []string) {
	for _, key := range keys {
		lockStore.Delete(key)
	}
}
