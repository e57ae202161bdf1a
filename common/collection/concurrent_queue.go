// The MIT License (MIT)

// Copyright (c) 2017-2020 Uber Technologies Inc.

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package collection

import (
	"errors"
	"sync"
)

// ErrQueueEmpty is returned by Peek and Remove on an empty queue.
var ErrQueueEmpty = errors.New("queue is empty")

type (
	// Queue is an unbounded first-in first-out queue.
	Queue[T any] interface {
		Peek() (T, error)
		Add(item T)
		Remove() (T, error)
		// RemoveAll empties the queue and returns its items in order.
		RemoveAll() []T
		Len() int
		IsEmpty() bool
	}

	concurrentQueueImpl[T any] struct {
		sync.Mutex
		items []T
		head  int
	}
)

// NewConcurrentQueue returns a Queue that is safe for concurrent use.
func NewConcurrentQueue[T any]() Queue[T] {
	return &concurrentQueueImpl[T]{}
}

func (q *concurrentQueueImpl[T]) Peek() (T, error) {
	q.Lock()
	defer q.Unlock()

	if q.head == len(q.items) {
		var zero T
		return zero, ErrQueueEmpty
	}
	return q.items[q.head], nil
}

func (q *concurrentQueueImpl[T]) Add(item T) {
	q.Lock()
	defer q.Unlock()

	q.items = append(q.items, item)
}

func (q *concurrentQueueImpl[T]) Remove() (T, error) {
	q.Lock()
	defer q.Unlock()

	var zero T
	if q.head == len(q.items) {
		return zero, ErrQueueEmpty
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	q.compact()
	return item, nil
}

func (q *concurrentQueueImpl[T]) RemoveAll() []T {
	q.Lock()
	defer q.Unlock()

	items := make([]T, len(q.items)-q.head)
	copy(items, q.items[q.head:])
	q.items = nil
	q.head = 0
	return items
}

func (q *concurrentQueueImpl[T]) Len() int {
	q.Lock()
	defer q.Unlock()

	return len(q.items) - q.head
}

func (q *concurrentQueueImpl[T]) IsEmpty() bool {
	return q.Len() == 0
}

// compact releases the consumed prefix once it dominates the backing array.
func (q *concurrentQueueImpl[T]) compact() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
}
