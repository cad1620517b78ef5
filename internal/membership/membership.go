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

// Package membership drives the join/leave console actions and the
// Maintainer's periodic failure-detection sweep of spec.md §4.3, on
// top of the shared internal/kernel state and internal/ops operation
// taxonomy.
package membership

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nabbar-ring/ringnode/internal/id"
	"github.com/nabbar-ring/ringnode/internal/kernel"
	"github.com/nabbar-ring/ringnode/internal/ops"
	"github.com/nabbar-ring/ringnode/internal/queue"
	"github.com/nabbar-ring/ringnode/internal/rerr"
)

// Driver issues the join/leave console actions against a node's
// kernel state, enqueuing the resulting wire operations onto the
// outbound queue.
type Driver struct {
	State *kernel.State
	Queue *queue.Queue
	Log   hclog.Logger

	// Bootstrap is the compile-time/config-time list of potential
	// introducer UDP addresses a JOIN is broadcast to.
	Bootstrap []string
}

func (d *Driver) log() hclog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return hclog.NewNullLogger()
}

// Join marks self as joined and broadcasts JOIN to the bootstrap
// list. Refuses a repeated join while already joined, per spec.md
// §4.3's idempotence requirement.
func (d *Driver) Join(ctx context.Context, selfUDPAddr, selfTCPAddr string, now time.Time) error {
	if d.State.IsJoined() {
		return rerr.ArgumentError.Errorf("already joined as %s", d.State.Self())
	}

	self := id.New(selfUDPAddr, now)
	d.State.Join(self, selfTCPAddr)

	if len(d.Bootstrap) == 0 {
		return nil
	}

	join := &ops.Join{ID: self, TCPAddr: selfTCPAddr}
	return d.Queue.Push(ctx, ops.Dispatch{Kind: ops.DestUDP, Addrs: d.Bootstrap, Op: join})
}

// Leave emits LEAV to the current successor list, then clears all
// local membership state (spec.md §4.3).
func (d *Driver) Leave(ctx context.Context) error {
	if !d.State.IsJoined() {
		return rerr.NotJoined.Errorf("leave requires a prior join")
	}

	self := d.State.Self()
	succ := d.State.Successors()

	d.State.Leave()

	if len(succ) == 0 {
		return nil
	}
	addrs := make([]string, 0, len(succ))
	for _, s := range succ {
		addrs = append(addrs, s.Addr())
	}

	leave := &ops.Leave{ID: self}
	return d.Queue.Push(ctx, ops.Dispatch{Kind: ops.DestUDP, Addrs: addrs, Op: leave})
}

// Maintainer periodically sweeps the predecessor list for expired
// entries and gossips their removal (spec.md §4.3's "Failure
// detection").
type Maintainer struct {
	State *kernel.State
	Queue *queue.Queue
	Log   hclog.Logger

	Tick        time.Duration
	Expiration  time.Duration
	// Now defaults to time.Now; overridable for tests.
	Now func() time.Time

	// OnFailure, if set, is invoked once per expired predecessor right
	// after it has been removed from membership — the seam
	// cmd/ringnode wires to internal/placement.Placement.Repair when
	// kernel.State.IsMaster() is true, so membership does not import
	// placement.
	OnFailure func(failed id.ID)
}

func (m *Maintainer) log() hclog.Logger {
	if m.Log != nil {
		return m.Log
	}
	return hclog.NewNullLogger()
}

func (m *Maintainer) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Run ticks until ctx is canceled, sweeping on each tick.
func (m *Maintainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.SweepOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SweepOnce performs a single expiration pass: spec.md §4.3 says to
// remove each expired predecessor from membership, enqueue a LEAV to
// successors, and recompute neighbors once — recomputation happens as
// a side effect of kernel.State.RemoveMember per expired ID.
func (m *Maintainer) SweepOnce(ctx context.Context) {
	expired := m.State.ExpiredPredecessors(m.now(), m.Expiration)
	for _, p := range expired {
		if !m.State.RemoveMember(p) {
			continue
		}
		m.log().Warn("predecessor expired", "id", string(p))

		succ := m.State.Successors()
		if len(succ) > 0 {
			addrs := make([]string, 0, len(succ))
			for _, s := range succ {
				addrs = append(addrs, s.Addr())
			}
			leave := &ops.Leave{ID: p}
			if err := m.Queue.Push(ctx, ops.Dispatch{Kind: ops.DestUDP, Addrs: addrs, Op: leave}); err != nil {
				m.log().Error("failed to enqueue LEAV for expired predecessor", "id", string(p), "err", err)
			}
		}

		if m.OnFailure != nil {
			m.OnFailure(p)
		}
	}
}
