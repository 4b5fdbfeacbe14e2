package sync

import "sync"

type refMutex struct {
	sync.Mutex
	refs int
}

// KeyedMutex provides mutual exclusion scoped to a key. Callers locking
// different keys never contend with one another. Locks are released from
// the internal table once no goroutine holds or waits on them.
type KeyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*refMutex
}

func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{locks: make(map[K]*refMutex)}
}

// Lock blocks until the lock for key is held, and returns the function
// which must be called to release it.
func (k *KeyedMutex[K]) Lock(key K) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[K]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.Unlock()

			k.mu.Lock()
			m.refs--
			if m.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// Held returns the number of keys which are currently locked or awaited.
func (k *KeyedMutex[K]) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
