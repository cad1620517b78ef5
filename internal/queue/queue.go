/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package queue decouples an Operation's Execute from the I/O that
// delivers its follow-up dispatches: Execute mutates kernel state and
// must never block on the network, so it hands its
// []ops.Dispatch result to a bounded channel that a separate drain
// loop drains (spec.md §4.4, §5).
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nabbar-ring/ringnode/internal/ops"
	"github.com/nabbar-ring/ringnode/internal/rerr"
)

// closedQueue is a pre-closed sentinel channel, returned for a Queue
// that has no channel (the zero value) so a reader observes completion
// instead of blocking forever.
var closedQueue = func() chan ops.Dispatch {
	c := make(chan ops.Dispatch)
	close(c)
	return c
}()

// Queue is a bounded, multi-producer single-consumer outbound dispatcher
// queue. The zero value is not usable; construct with New.
type Queue struct {
	ch     chan ops.Dispatch
	closed atomic.Bool
	once   sync.Once
}

// New builds a Queue with the given channel capacity. A capacity of 0
// yields an unbuffered (synchronous) queue.
func New(capacity int) *Queue {
	return &Queue{ch: make(chan ops.Dispatch, capacity)}
}

// Push enqueues d, blocking until there is room, ctx is done, or the
// queue has been closed.
func (q *Queue) Push(ctx context.Context, d ops.Dispatch) error {
	if q.closed.Load() {
		return rerr.TransportError.Errorf("queue: push on closed queue")
	}
	select {
	case q.ch <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PushAll enqueues every dispatch in ds, stopping at the first error.
func (q *Queue) PushAll(ctx context.Context, ds []ops.Dispatch) error {
	for _, d := range ds {
		if err := q.Push(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of dispatches currently buffered, for the
// outbound_queue_depth gauge.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting new dispatches. Already-enqueued dispatches
// remain readable by Drain until the channel is empty. Safe to call
// more than once.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.closed.Store(true)
		close(q.ch)
	})
}

// chanOrClosed returns the readable channel, or the pre-closed sentinel
// when q.ch is nil; a closed q.ch itself reports completion once
// drained — mirrors the teacher's
// closed-channel sentinel idiom for shutdown signaling.
func (q *Queue) chanOrClosed() <-chan ops.Dispatch {
	if q.ch != nil {
		return q.ch
	}
	return closedQueue
}

// Drain runs until ctx is canceled or the queue is closed and empty,
// calling send for each dispatch in arrival order. A send error is
// logged by the caller's send func and does not stop the drain loop —
// one bad destination must not starve the rest of the queue.
func (q *Queue) Drain(ctx context.Context, send func(ops.Dispatch) error) error {
	for {
		select {
		case d, ok := <-q.chanOrClosed():
			if !ok {
				return nil
			}
			_ = send(d)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
