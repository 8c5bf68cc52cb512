package freshness

// Record is the cached answer for one key: either a latest version
// descriptor or empty, meaning no newer version is known.
type Record[V any] struct {
	value   V
	present bool
}

// Empty returns a record with no known version.
func Empty[V any]() Record[V] {
	return Record[V]{}
}

// Of returns a record holding the provided descriptor.
func Of[V any](value V) Record[V] {
	return Record[V]{
		value:   value,
		present: true,
	}
}

// Get returns the descriptor and whether one is present.
func (r Record[V]) Get() (V, bool) {
	return r.value, r.present
}

// IsEmpty reports whether no version is known.
func (r Record[V]) IsEmpty() bool {
	return !r.present
}
