// Package queue buffers activities between request handlers and the flush worker.
package queue

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/pateepk/AgileSite-sub083/internal/domain"
)

type node struct {
	activity *domain.Activity
	next     atomic.Pointer[node]
}

// EventQueue is an unbounded FIFO safe for any number of producers and consumers.
//
// Producers and consumers take separate locks, so an Enqueue never waits on a
// Dequeue in progress. The head always points at a sentinel node.
type EventQueue struct {
	headMu sync.Mutex
	head   *node
	tailMu sync.Mutex
	tail   *node
	size   atomic.Int64
}

// New constructs an empty EventQueue.
func New() *EventQueue {
	sentinel := &node{}
	return &EventQueue{head: sentinel, tail: sentinel}
}

// Enqueue appends the activity to the queue.
func (q *EventQueue) Enqueue(activity *domain.Activity) error {
	if activity == nil {
		return errors.WithStack(&domain.ErrInvalidArgument{
			Name:    "activity",
			Value:   activity,
			Message: "activity must be non-nil",
		})
	}

	n := &node{activity: activity}

	q.tailMu.Lock()
	q.tail.next.Store(n)
	q.tail = n
	q.tailMu.Unlock()

	q.size.Add(1)
	enqueuedCounter.Inc()
	return nil
}

// TryDequeue removes the oldest activity. It returns false when the queue is empty.
func (q *EventQueue) TryDequeue() (*domain.Activity, bool) {
	q.headMu.Lock()
	defer q.headMu.Unlock()

	next := q.head.next.Load()
	if next == nil {
		return nil, false
	}
	activity := next.activity
	// next becomes the new sentinel; drop its payload so the queue keeps no reference.
	next.activity = nil
	q.head = next
	q.size.Add(-1)
	return activity, true
}

// DrainAll dequeues until the queue reports empty and returns the activities in FIFO order.
// Activities enqueued while the drain is running may or may not be included.
func (q *EventQueue) DrainAll() []*domain.Activity {
	var drained []*domain.Activity
	for {
		activity, ok := q.TryDequeue()
		if !ok {
			return drained
		}
		drained = append(drained, activity)
	}
}

// Len returns the number of queued activities.
func (q *EventQueue) Len() int {
	// A dequeue can observe a node before the producer has bumped the counter.
	if n := q.size.Load(); n > 0 {
		return int(n)
	}
	return 0
}
