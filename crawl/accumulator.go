package crawl

import "sync"

// Accumulator is the run's result set: records in admission order plus the
// seen-key index. It is safe for concurrent use; the first writer of a key
// wins.
type Accumulator[T any] struct {
	mu    sync.Mutex
	key   func(T) string
	seen  map[string]struct{}
	items []T
}

// NewAccumulator creates an empty accumulator keyed by key.
func NewAccumulator[T any](key func(T) string) *Accumulator[T] {
	return &Accumulator[T]{
		key:  key,
		seen: make(map[string]struct{}),
	}
}

// Admit appends item unless its key was already admitted. It reports
// whether the item was added.
func (a *Accumulator[T]) Admit(item T) bool {
	k := a.key(item)

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, dup := a.seen[k]; dup {
		return false
	}
	a.seen[k] = struct{}{}
	a.items = append(a.items, item)
	return true
}

// Size returns the number of admitted records.
func (a *Accumulator[T]) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// IsFull reports whether a bounded run has reached its target.
func (a *Accumulator[T]) IsFull(max int) bool {
	return max > 0 && a.Size() >= max
}

// Records returns a copy of the admitted records, truncated to max when
// max > 0.
func (a *Accumulator[T]) Records(max int) []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.items)
	if max > 0 && n > max {
		n = max
	}
	out := make([]T, n)
	copy(out, a.items[:n])
	return out
}
