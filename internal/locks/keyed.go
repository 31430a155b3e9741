package locks

import "sync"

// KeyedMutex serializes work per string key. Locks for distinct keys do not
// contend with each other; lock entries are created on first use and kept for
// the lifetime of the process (the key space here is flights and city-hour
// buckets, both small).
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*sync.Mutex)}
}

func (k *KeyedMutex) Lock(key string) {
	k.entry(key).Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	k.entry(key).Unlock()
}

// LockAll acquires every key in sorted order so that two callers locking
// overlapping key sets cannot deadlock. Keys must be pre-sorted and unique.
func (k *KeyedMutex) LockAll(keys []string) {
	for _, key := range keys {
		k.Lock(key)
	}
}

func (k *KeyedMutex) UnlockAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		k.Unlock(keys[i])
	}
}

func (k *KeyedMutex) entry(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.entries[key]
	if !ok {
		m = &sync.Mutex{}
		k.entries[key] = m
	}
	return m
}
