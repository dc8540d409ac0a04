// Package singleton keeps one lazily built instance per Value.
package singleton

import "sync"

// Value holds at most one instance of T. The first successful build wins and
// later builders are ignored; a failed build leaves the Value empty.
type Value[T any] struct {
	mu    sync.Mutex
	set   bool
	value T
}

// Get returns the stored instance, building it with build on first use.
func (v *Value[T]) Get(build func() (T, error)) (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.set {
		return v.value, nil
	}
	value, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	v.value, v.set = value, true
	return value, nil
}

// Loaded returns the stored instance and whether one exists.
func (v *Value[T]) Loaded() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.set
}

// Reset drops the stored instance.
func (v *Value[T]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	v.value, v.set = zero, false
}

// Optional returns the shared instance when shared is true, otherwise a fresh
// one built by build.
func Optional[T any](v *Value[T], shared bool, build func() (T, error)) (T, error) {
	if shared {
		return v.Get(build)
	}
	return build()
}
