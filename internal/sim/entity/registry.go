package entity

import "sync"

// Registry is an id-keyed map guarded by a single RWMutex. Iteration follows
// insertion order so tick passes are reproducible.
type Registry[T any] struct {
	mu    sync.RWMutex
	m     map[string]T
	order []string
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{m: map[string]T{}}
}

// Locked is a view of a registry whose lock is already held by the caller.
type Locked[T any] struct{ r *Registry[T] }

// Update runs fn with the write lock held for the whole call.
func (r *Registry[T]) Update(fn func(Locked[T])) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(Locked[T]{r: r})
}

// View runs fn with the read lock held. fn must not Insert or Remove.
func (r *Registry[T]) View(fn func(Locked[T])) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(Locked[T]{r: r})
}

func (r *Registry[T]) Insert(id string, v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(id, v)
}

func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[id]
	return v, ok
}

// Remove deletes id and returns the removed value. Of several concurrent
// callers exactly one observes ok=true.
func (r *Registry[T]) Remove(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}

// Snapshot copies every value through clone while holding the read lock.
func (r *Registry[T]) Snapshot(clone func(T) T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, 0, len(r.m))
	r.eachLocked(func(_ string, v T) bool {
		out = append(out, clone(v))
		return true
	})
	return out
}

func (l Locked[T]) Get(id string) (T, bool) {
	v, ok := l.r.m[id]
	return v, ok
}

func (l Locked[T]) Insert(id string, v T) bool { return l.r.insertLocked(id, v) }

func (l Locked[T]) Remove(id string) (T, bool) { return l.r.removeLocked(id) }

func (l Locked[T]) Len() int { return len(l.r.m) }

// Each visits values in insertion order until fn returns false. Removing the
// visited id from inside fn is allowed.
func (l Locked[T]) Each(fn func(id string, v T) bool) { l.r.eachLocked(fn) }

func (r *Registry[T]) insertLocked(id string, v T) bool {
	if _, exists := r.m[id]; exists {
		return false
	}
	r.m[id] = v
	r.order = append(r.order, id)
	return true
}

func (r *Registry[T]) removeLocked(id string) (T, bool) {
	v, ok := r.m[id]
	if !ok {
		return v, false
	}
	delete(r.m, id)
	// order is compacted lazily.
	if len(r.order) > 32 && len(r.order) > 2*len(r.m) {
		r.compactLocked()
	}
	return v, true
}

func (r *Registry[T]) compactLocked() {
	out := r.order[:0]
	seen := make(map[string]struct{}, len(r.m))
	for _, id := range r.order {
		if _, ok := r.m[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for i := len(out); i < len(r.order); i++ {
		r.order[i] = ""
	}
	r.order = out
}

func (r *Registry[T]) eachLocked(fn func(id string, v T) bool) {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		v, ok := r.m[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !fn(id, v) {
			return
		}
	}
}
