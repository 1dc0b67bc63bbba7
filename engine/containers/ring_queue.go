package containers

import (
	"errors"
	"sync"
)

var (
	ErrQueueFull  = errors.New("queue is full")
	ErrQueueEmpty = errors.New("queue is empty")
)

type RingQueue[T any] struct {
	mu         sync.Mutex
	data       []T
	size       int
	readIndex  int
	writeIndex int
	count      int
}

// Create a new RingQueue
func NewRingQueue[T any](size int) *RingQueue[T] {
	if size < 1 {
		size = 1
	}
	return &RingQueue[T]{
		data: make([]T, size),
		size: size,
	}
}

// Enqueue adds an element to the queue
func (rq *RingQueue[T]) Enqueue(value T) error {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if rq.count == rq.size {
		return ErrQueueFull
	}
	rq.push(value)
	return nil
}

// Push adds an element, overwriting the oldest one when the queue is full.
func (rq *RingQueue[T]) Push(value T) {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if rq.count == rq.size {
		rq.pop()
	}
	rq.push(value)
}

// Dequeue removes and returns the front element in the queue
func (rq *RingQueue[T]) Dequeue() (T, error) {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if rq.count == 0 {
		var zero T
		return zero, ErrQueueEmpty
	}
	return rq.pop(), nil
}

// Peek returns the front element without removing it
func (rq *RingQueue[T]) Peek() (T, error) {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if rq.count == 0 {
		var zero T
		return zero, ErrQueueEmpty
	}
	return rq.data[rq.readIndex], nil
}

// Items returns a copy of the queued elements, oldest first.
func (rq *RingQueue[T]) Items() []T {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	out := make([]T, 0, rq.count)
	for i := 0; i < rq.count; i++ {
		out = append(out, rq.data[(rq.readIndex+i)%rq.size])
	}
	return out
}

func (rq *RingQueue[T]) Len() int {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return rq.count
}

// IsEmpty checks if the queue is empty
func (rq *RingQueue[T]) IsEmpty() bool {
	return rq.Len() == 0
}

// IsFull checks if the queue is full
func (rq *RingQueue[T]) IsFull() bool {
	return rq.Len() == rq.size
}

func (rq *RingQueue[T]) push(value T) {
	rq.data[rq.writeIndex] = value
	rq.writeIndex = (rq.writeIndex + 1) % rq.size
	rq.count++
}

func (rq *RingQueue[T]) pop() T {
	var zero T
	value := rq.data[rq.readIndex]
	rq.data[rq.readIndex] = zero
	rq.readIndex = (rq.readIndex + 1) % rq.size
	rq.count--
	return value
}
