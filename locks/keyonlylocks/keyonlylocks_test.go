package keyonlylocks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLock(t *testing.T) {
	var m sync.Map
	release, ok := TryLock(&m, "bulk:1")
	require.True(t, ok)
	_, ok = TryLock(&m, "bulk:1")
	assert.False(t, ok)
	_, ok = TryLock(&m, "bulk:2")
	assert.True(t, ok)

	release()
	release()
	_, ok = TryLock(&m, "bulk:1")
	assert.True(t, ok)
}

func TestAcquireLocksAllOrNothing(t *testing.T) {
	var m sync.Map
	_, ok := AcquireLocks(&m, []string{"b"})
	require.True(t, ok)

	_, ok = AcquireLocks(&m, []string{"a", "b", "c"})
	assert.False(t, ok)
	_, loaded := m.Load("a")
	assert.False(t, loaded)

	held, ok := AcquireLocks(&m, []string{"a", "c"})
	require.True(t, ok)
	ReleaseLocks(&m, held)
	_, loaded = m.Load("a")
	assert.False(t, loaded)
}
