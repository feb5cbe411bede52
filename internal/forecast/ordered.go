package forecast

// orderedMap iterates in first-insertion order.
type orderedMap[K comparable, V any] struct {
	keys  []K
	items map[K]V
}

func newOrderedMap[K comparable, V any]() *orderedMap[K, V] {
	return &orderedMap[K, V]{items: make(map[K]V)}
}

func (m *orderedMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.items[k]
	return v, ok
}

// Set keeps the original position of k if it is already present.
func (m *orderedMap[K, V]) Set(k K, v V) {
	if _, ok := m.items[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.items[k] = v
}

func (m *orderedMap[K, V]) Len() int { return len(m.keys) }

func (m *orderedMap[K, V]) Values() []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.items[k])
	}
	return out
}
