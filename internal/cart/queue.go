package cart

import (
	"context"
	"sync"
)

// Queue runs functions one at a time per key, in arrival order.
// Each call waits for the previous call on the same key to finish.
type Queue struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func NewQueue() *Queue {
	return &Queue{tails: make(map[string]chan struct{})}
}

// Do enqueues fn behind every earlier call for key. If ctx ends while
// waiting, Do returns ctx.Err() without running fn; its slot is released
// only after the predecessor finishes so later calls stay ordered.
func (q *Queue) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	q.mu.Lock()
	prev := q.tails[key]
	done := make(chan struct{})
	q.tails[key] = done
	q.mu.Unlock()

	release := func() {
		q.mu.Lock()
		if q.tails[key] == done {
			delete(q.tails, key)
		}
		q.mu.Unlock()
		close(done)
	}

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				release()
			}()
			return ctx.Err()
		}
	}
	defer release()
	return fn(ctx)
}

// Len reports how many keys currently have queued or running work.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tails)
}
