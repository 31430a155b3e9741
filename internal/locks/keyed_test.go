package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("flight-1")
			counter++
			km.Unlock("flight-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedMutex_DistinctKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("flight-1")
	defer km.Unlock("flight-1")

	done := make(chan struct{})
	go func() {
		km.Lock("flight-2")
		km.Unlock("flight-2")
		close(done)
	}()
	<-done
}

func TestKeyedMutex_LockAllUnlocksInReverse(t *testing.T) {
	km := NewKeyedMutex()
	keys := []string{"a", "b", "c"}

	km.LockAll(keys)
	km.UnlockAll(keys)

	// All keys usable again after UnlockAll.
	for _, k := range keys {
		km.Lock(k)
		km.Unlock(k)
	}
}
