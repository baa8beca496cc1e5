package store

// ring is a fixed-capacity FIFO; pushing past capacity overwrites the oldest
// entry. Not safe for concurrent use — the Store's lock guards it.
type ring[T any] struct {
	buf      []T
	capacity int
	head     int // next write position
	count    int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
	}
}

func (r *ring[T]) push(v T) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}
}

// items returns a copy of the buffered entries, oldest first.
func (r *ring[T]) items() []T {
	if r.count == 0 {
		return nil
	}
	out := make([]T, r.count)
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(start+i)%r.capacity]
	}
	return out
}

// lastN returns a copy of the newest n entries, oldest first. n <= 0 or
// n >= len returns everything.
func (r *ring[T]) lastN(n int) []T {
	all := r.items()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

func (r *ring[T]) reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = 0
	r.count = 0
}

func (r *ring[T]) len() int {
	return r.count
}
