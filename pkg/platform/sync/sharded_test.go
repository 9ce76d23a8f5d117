package sync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMutexLockUnlock(t *testing.T) {
	m := NewShardedMutex()
	m.Lock("sessao-1")
	m.Unlock("sessao-1")

	// empty key maps to shard 0
	m.Lock("")
	m.Unlock("")
}

func TestShardedMutexSerializesSameKey(t *testing.T) {
	m := NewShardedMutex()
	counter := 0

	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.With("mesma-chave", func() { counter++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, counter)
}

func TestShardForIsStable(t *testing.T) {
	assert.Equal(t, shardFor("abc"), shardFor("abc"))
	assert.Equal(t, 0, shardFor(""))
	assert.Less(t, shardFor("qualquer"), shardCount)
}
