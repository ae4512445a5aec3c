package kvdb

import (
	"fmt"
	"sync"
)

type ClientFactory func(conf *Conf) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ClientFactory{}
)

// RegisterFactory makes kvType available to New. Registering twice replaces the factory
func RegisterFactory(kvType string, factory ClientFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kvType] = factory
}

func New(kvType string, conf *Conf) (Client, error) {
	registryMu.RLock()
	factory, ok := registry[kvType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("kvdb: unsupported type %q", kvType)
	}
	return factory(conf)
}
