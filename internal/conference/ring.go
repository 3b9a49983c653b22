package conference

// ring is a fixed-capacity FIFO that evicts the oldest item when full.
// A capacity <= 0 means unbounded.
type ring[T any] struct {
	buf     []T
	head    int
	size    int
	cap     int
	evicted int
}

func newRing[T any](capacity int) *ring[T] {
	r := &ring[T]{cap: capacity}
	if capacity > 0 {
		r.buf = make([]T, capacity)
	}
	return r
}

func (r *ring[T]) push(v T) {
	if r.cap <= 0 {
		r.buf = append(r.buf, v)
		r.size++
		return
	}
	if r.size < r.cap {
		r.buf[(r.head+r.size)%r.cap] = v
		r.size++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % r.cap
	r.evicted++
}

func (r *ring[T]) len() int { return r.size }

// truncated reports whether items have been evicted since creation.
func (r *ring[T]) truncated() bool { return r.evicted > 0 }

// items returns the contents oldest first.
func (r *ring[T]) items() []T {
	out := make([]T, 0, r.size)
	if r.cap <= 0 {
		return append(out, r.buf...)
	}
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%r.cap])
	}
	return out
}

func (r *ring[T]) reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	if r.cap <= 0 {
		r.buf = nil
	}
	r.head, r.size = 0, 0
}
