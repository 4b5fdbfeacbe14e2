package sync

import "sync"

// TypedSyncMap is a generic wrapper around sync.Map which removes the need
// for type assertions at every call site.
type TypedSyncMap[K comparable, V any] struct {
	m sync.Map
}

func (m *TypedSyncMap[K, V]) Delete(key K) { m.m.Delete(key) }

func (m *TypedSyncMap[K, V]) Load(key K) (V, bool) {
	v, ok := m.m.Load(key)
	if !ok {
		return *new(V), false
	}

	vv, ok := v.(V)
	return vv, ok
}

func (m *TypedSyncMap[K, V]) LoadAndDelete(key K) (V, bool) {
	v, loaded := m.m.LoadAndDelete(key)
	if !loaded {
		return *new(V), false
	}

	vv, _ := v.(V)
	return vv, true
}

func (m *TypedSyncMap[K, V]) LoadOrStore(key K, value V) (V, bool) {
	a, loaded := m.m.LoadOrStore(key, value)
	av, _ := a.(V)
	return av, loaded
}

func (m *TypedSyncMap[K, V]) Store(key K, value V) { m.m.Store(key, value) }

// Range calls fn for each key/value in the map. Iteration stops
// when fn returns false. See sync.Map.Range for the consistency caveats.
func (m *TypedSyncMap[K, V]) Range(fn func(K, V) bool) {
	m.m.Range(func(key, value any) bool {
		k, kok := key.(K)
		v, vok := value.(V)
		if !kok || !vok {
			return true
		}

		return fn(k, v)
	})
}

// Len counts the entries currently in the map.
func (m *TypedSyncMap[K, V]) Len() int {
	count := 0
	m.m.Range(func(_, _ any) bool {
		count++
		return true
	})

	return count
}
