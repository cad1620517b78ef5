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

package membership_test

import (
	"context"
	"testing"
	"time"

	"github.com/nabbar-ring/ringnode/internal/id"
	"github.com/nabbar-ring/ringnode/internal/kernel"
	"github.com/nabbar-ring/ringnode/internal/membership"
	"github.com/nabbar-ring/ringnode/internal/ops"
	"github.com/nabbar-ring/ringnode/internal/queue"
)

func TestJoinBroadcastsToBootstrapList(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	q := queue.New(4)
	d := &membership.Driver{State: s, Queue: q, Bootstrap: []string{"10.0.0.1:7000", "10.0.0.2:7000"}}

	ctx := context.Background()
	if err := d.Join(ctx, "10.0.0.3:7000", "10.0.0.3:7003", time.Unix(1000, 0)); err != nil {
		t.Fatal(err)
	}

	if !s.IsJoined() {
		t.Fatal("expected kernel state to be joined")
	}

	var dispatch ops.Dispatch
	_ = q.Drain(drainOneCtx(t), captureOne(&dispatch))
	if len(dispatch.Addrs) != 2 {
		t.Fatalf("expected JOIN broadcast to 2 bootstrap addresses, got %v", dispatch.Addrs)
	}
	if _, ok := dispatch.Op.(*ops.Join); !ok {
		t.Fatalf("expected a JOIN dispatch, got %T", dispatch.Op)
	}
}

func TestRepeatedJoinIsRefused(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	q := queue.New(4)
	d := &membership.Driver{State: s, Queue: q}

	ctx := context.Background()
	if err := d.Join(ctx, "10.0.0.3:7000", "10.0.0.3:7003", time.Unix(1000, 0)); err != nil {
		t.Fatal(err)
	}
	if err := d.Join(ctx, "10.0.0.3:7000", "10.0.0.3:7003", time.Unix(2000, 0)); err == nil {
		t.Fatal("expected a second join to be refused")
	}
}

func TestLeaveRequiresPriorJoin(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	q := queue.New(4)
	d := &membership.Driver{State: s, Queue: q}

	if err := d.Leave(context.Background()); err == nil {
		t.Fatal("expected leave without a prior join to fail")
	}
}

func TestMaintainerSweepRemovesExpiredPredecessorAndGossipsLeave(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join("B|1000", "tcp:B")
	s.InsertMember("A|999", "tcp:A")
	s.InsertMember("C|1001", "tcp:C")

	// A is now self's predecessor; touch it once so it has a timestamp.
	if _, err := s.TouchHeartbeat("A|999", time.Unix(1000, 0)); err != nil {
		t.Fatal(err)
	}

	q := queue.New(4)
	m := &membership.Maintainer{
		State:      s,
		Queue:      q,
		Tick:       time.Hour,
		Expiration: 3 * time.Second,
		Now:        func() time.Time { return time.Unix(1010, 0) },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ops.Dispatch, 1)
	drainDone := make(chan struct{})
	go func() {
		_ = q.Drain(ctx, func(d ops.Dispatch) error {
			received <- d
			return nil
		})
		close(drainDone)
	}()

	m.SweepOnce(ctx)

	var dispatch ops.Dispatch
	select {
	case dispatch = <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the LEAV dispatch")
	}
	cancel()
	<-drainDone

	members := s.Members()
	for _, mem := range members {
		if mem == id.ID("A|999") {
			t.Fatal("expected expired predecessor to be removed from membership")
		}
	}
	if leave, ok := dispatch.Op.(*ops.Leave); !ok || leave.ID != id.ID("A|999") {
		t.Fatalf("expected a LEAV dispatch for the expired predecessor, got %v", dispatch.Op)
	}
}

func TestMaintainerSweepInvokesOnFailureHook(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join("B|1000", "tcp:B")
	s.InsertMember("A|999", "tcp:A")
	s.InsertMember("C|1001", "tcp:C")

	if _, err := s.TouchHeartbeat("A|999", time.Unix(1000, 0)); err != nil {
		t.Fatal(err)
	}

	q := queue.New(4)
	var failed id.ID
	m := &membership.Maintainer{
		State:      s,
		Queue:      q,
		Tick:       time.Hour,
		Expiration: 3 * time.Second,
		Now:        func() time.Time { return time.Unix(1010, 0) },
		OnFailure:  func(p id.ID) { failed = p },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Drain(ctx, func(ops.Dispatch) error { return nil })

	m.SweepOnce(ctx)

	if failed != id.ID("A|999") {
		t.Fatalf("expected OnFailure to be called with the expired predecessor, got %q", failed)
	}
}

func drainOneCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func captureOne(dst *ops.Dispatch) func(ops.Dispatch) error {
	got := false
	return func(d ops.Dispatch) error {
		if !got {
			*dst = d
			got = true
		}
		return nil
	}
}
