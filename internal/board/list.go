package board

// keyed is an insertion-ordered collection with O(1) lookup by key.
type keyed[T any] struct {
	key   func(T) string
	pos   map[string]int
	items []T
}

func newKeyed[T any](key func(T) string) *keyed[T] {
	return &keyed[T]{key: key, pos: make(map[string]int)}
}

// upsert replaces an existing entry in place or appends a new one.
func (l *keyed[T]) upsert(v T) {
	k := l.key(v)
	if i, ok := l.pos[k]; ok {
		l.items[i] = v
		return
	}
	l.pos[k] = len(l.items)
	l.items = append(l.items, v)
}

func (l *keyed[T]) get(k string) (T, bool) {
	i, ok := l.pos[k]
	if !ok {
		var zero T
		return zero, false
	}
	return l.items[i], true
}

func (l *keyed[T]) remove(k string) (T, bool) {
	i, ok := l.pos[k]
	if !ok {
		var zero T
		return zero, false
	}
	v := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	delete(l.pos, k)
	for j := i; j < len(l.items); j++ {
		l.pos[l.key(l.items[j])] = j
	}
	return v, true
}

func (l *keyed[T]) replace(vs []T) {
	l.pos = make(map[string]int, len(vs))
	l.items = make([]T, 0, len(vs))
	for _, v := range vs {
		l.upsert(v)
	}
}

func (l *keyed[T]) len() int {
	return len(l.items)
}

func (l *keyed[T]) each(fn func(T)) {
	for _, v := range l.items {
		fn(v)
	}
}
