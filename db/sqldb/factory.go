package sqldb

import (
	"fmt"
	"sync"
)

type ClientFactory func(conf *Conf) (Client, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]ClientFactory{}
)

// RegisterFactory makes dbType available to New
func RegisterFactory(dbType string, factory ClientFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[dbType] = factory
}

func New(dbType string, conf *Conf) (Client, error) {
	factoriesMu.RLock()
	factory, ok := factories[dbType]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sqldb: unsupported type %q", dbType)
	}
	return factory(conf)
}
