package fixed

import "fmt"

type RingBuffer struct {
	buffer   []Point
	capacity int
	size     int
	tail     int
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		panic("capacity must be positive")
	}
	return &RingBuffer{
		buffer:   make([]Point, capacity),
		capacity: capacity,
	}
}

func (r *RingBuffer) Size() int {
	return r.size
}

func (r *RingBuffer) Capacity() int {
	return r.capacity
}

func (r *RingBuffer) IsEmpty() bool {
	return r.size == 0
}

func (r *RingBuffer) IsFull() bool {
	return r.size == r.capacity
}

func (r *RingBuffer) Clear() {
	r.size = 0
	r.tail = 0
}

func (r *RingBuffer) Add(p Point) {
	r.buffer[r.tail] = p
	r.tail = (r.tail + 1) % r.capacity

	if r.size < r.capacity {
		r.size++
	}
}

// Get returns the idx-th most recent point, 0 being the latest.
func (r *RingBuffer) Get(idx int) Point {
	if idx < 0 || idx >= r.size {
		panic(fmt.Sprintf("index %d out of range [0, %d)", idx, r.size))
	}

	actualIdx := (r.tail - 1 - idx + r.capacity) % r.capacity
	return r.buffer[actualIdx]
}

func (r *RingBuffer) Latest() Point {
	if r.size == 0 {
		panic("buffer is empty")
	}
	return r.Get(0)
}

func (r *RingBuffer) Oldest() Point {
	if r.size == 0 {
		panic("buffer is empty")
	}
	return r.Get(r.size - 1)
}

// Sum returns the sum of all stored points.
func (r *RingBuffer) Sum() Point {
	sum := Zero
	for i := 0; i < r.size; i++ {
		sum = sum.Add(r.Get(i))
	}
	return sum
}

// Mean returns the average of all stored points, or Zero when empty.
func (r *RingBuffer) Mean() Point {
	if r.size == 0 {
		return Zero
	}
	return r.Sum().DivInt(r.size)
}
