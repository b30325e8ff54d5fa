package session

import "sync/atomic"

// Queue is a bounded outbound buffer. When full, the oldest frame is dropped
// so a slow client always sees the latest state.
type Queue struct {
	ch      chan []byte
	dropped atomic.Uint64
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan []byte, size)}
}

func (q *Queue) C() <-chan []byte { return q.ch }

func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

func (q *Queue) Len() int { return len(q.ch) }

// Push never blocks.
func (q *Queue) Push(b []byte) {
	select {
	case q.ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-q.ch:
		q.dropped.Add(1)
	default:
	}
	select {
	case q.ch <- b:
	default:
		q.dropped.Add(1)
	}
}
