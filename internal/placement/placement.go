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

// Package placement implements put/get file placement (spec.md §4.5)
// and master-led failure recovery (spec.md §4.6) on top of the shared
// kernel state, the ring placement math, and the ops/queue layers.
// It also supplies the Puller hook that internal/ops.Runtime calls
// when a failure-driven NFO adds self to a file's owner set.
package placement

import (
	"context"
	"net"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/nabbar-ring/ringnode/internal/id"
	"github.com/nabbar-ring/ringnode/internal/kernel"
	"github.com/nabbar-ring/ringnode/internal/metrics"
	"github.com/nabbar-ring/ringnode/internal/ops"
	"github.com/nabbar-ring/ringnode/internal/queue"
	"github.com/nabbar-ring/ringnode/internal/rerr"
	"github.com/nabbar-ring/ringnode/internal/ring"
	"github.com/nabbar-ring/ringnode/internal/wire"
)

// Placement drives put/get and the master's repair pass. GET's
// request/reply exchange is a synchronous point-to-point TCP round
// trip and does not go through the fire-and-forget outbound Queue;
// everything else (NFO, FILE, LOST) is enqueued for the Sender's TCP
// dial loop exactly like any other ops.Dispatch.
type Placement struct {
	State *kernel.State
	Queue *queue.Queue
	Log   hclog.Logger

	DataDir   string
	NumOwners int

	// Dial opens a TCP connection for the synchronous GET round trip.
	// Defaults to a zero net.Dialer's DialContext("tcp", addr), which
	// has no timeout of its own and is bounded only by ctx.
	Dial func(ctx context.Context, addr string) (net.Conn, error)

	ReadFile  func(path string) ([]byte, error)
	WriteFile func(path string, data []byte) error

	// Metrics, if set, is fed a repairs-performed count. Optional so
	// tests can build a bare Placement.
	Metrics *metrics.Metrics
}

func (p *Placement) log() hclog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return hclog.NewNullLogger()
}

func (p *Placement) dial(ctx context.Context, addr string) (net.Conn, error) {
	if p.Dial != nil {
		return p.Dial(ctx, addr)
	}
	d := net.Dialer{}
	return d.DialContext(ctx, "tcp", addr)
}

// ComputedOwners returns the ring-anchored owner set a fresh placement
// of file would choose — spec.md §4.2/§4.5's "computed owner set",
// which may diverge from the authoritative ALL_FILE_OWNERS[f] map
// under churn.
func (p *Placement) ComputedOwners(file string) ([]id.ID, error) {
	members := p.State.Members()
	anchor := ring.AnchorIndex(file, len(members))
	return ring.AnchoredOwners(members, anchor, p.NumOwners)
}

// Put computes file's owner set, gossips NFO to successors, then
// TCP-sends FILE to every owner (spec.md §4.5's "put").
func (p *Placement) Put(ctx context.Context, localPath, file string) error {
	owners, err := p.ComputedOwners(file)
	if err != nil {
		return err
	}

	succ := p.State.Successors()
	if addrs := p.tcpAddrsFor(succ); len(addrs) > 0 {
		nfo := &ops.NewOwners{File: file, NewOwners: owners, FromFailure: false}
		if err := p.Queue.Push(ctx, ops.Dispatch{Kind: ops.DestTCPDial, Addrs: addrs, Op: nfo}); err != nil {
			return err
		}
	}

	data, err := p.ReadFile(localPath)
	if err != nil {
		return rerr.TransportError.Errorf("put: reading %s: %v", localPath, err)
	}

	ownerAddrs := p.tcpAddrsFor(owners)
	if len(ownerAddrs) == 0 {
		return nil
	}
	file_ := &ops.File{Filename: file, Data: data, IsDistributed: true}
	return p.Queue.Push(ctx, ops.Dispatch{Kind: ops.DestTCPDial, Addrs: ownerAddrs, Op: file_})
}

// Get looks up file's current owners, dials each in turn, sends GET,
// and writes the first FILE reply's payload to localPath (spec.md
// §4.5's "get"). This is the synchronous hook used both by the
// console's `get` command and by ops.Runtime.Puller.
func (p *Placement) Get(ctx context.Context, file, localPath string) error {
	owners := p.State.Owners(file)
	if len(owners) == 0 {
		return rerr.PlacementFailure.Errorf("get: no known owners for %s", file)
	}

	var lastErr error
	for _, o := range owners {
		addr, ok := p.State.UDPToTCP(o.Addr())
		if !ok {
			continue
		}
		data, err := p.getFrom(ctx, addr, file, localPath)
		if err != nil {
			lastErr = err
			continue
		}
		return p.WriteFile(localPath, data)
	}

	if lastErr != nil {
		return rerr.TransportError.Errorf("get: all owners unreachable for %s: %v", file, lastErr)
	}
	return rerr.PlacementFailure.Errorf("get: no reachable owner for %s", file)
}

func (p *Placement) getFrom(ctx context.Context, addr, file, localPath string) ([]byte, error) {
	conn, err := p.dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	get := &ops.Get{DistributedFilename: file, LocalPath: localPath}
	if _, err := conn.Write(get.ToBytes()); err != nil {
		return nil, err
	}

	frame, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, err
	}
	reply, err := ops.Decode(frame)
	if err != nil {
		return nil, err
	}
	fileOp, ok := reply.(*ops.File)
	if !ok {
		return nil, rerr.ProtocolIntegrity.Errorf("get: expected FILE reply, got %s", reply)
	}
	return fileOp.Data, nil
}

// Puller adapts Get into the ops.Runtime.Puller function signature:
// a synchronous pull of file into DATA_DIR/file, as if the console had
// issued `get file DATA_DIR/file`.
func (p *Placement) Puller(file string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return p.Get(ctx, file, filepath.Join(p.DataDir, file))
}

func (p *Placement) tcpAddrsFor(ids []id.ID) []string {
	out := make([]string, 0, len(ids))
	for _, i := range ids {
		if tcp, ok := p.State.UDPToTCP(i.Addr()); ok {
			out = append(out, tcp)
		}
	}
	return out
}

// Repair is the master's failure-recovery pass of spec.md §4.6,
// triggered after a peer has been locally declared failed (spec.md
// §4.3). Only the deterministic master performs it; non-master nodes
// are no-ops by construction (see cmd/ringnode's wiring, which only
// invokes Repair when kernel.State.IsMaster() is true).
func (p *Placement) Repair(ctx context.Context, failed id.ID) error {
	lost := p.State.FilesOwnedBy(failed)
	if len(lost) == 0 {
		return nil
	}

	succ := p.State.Successors()
	addrs := p.tcpAddrsFor(succ)

	if len(addrs) > 0 {
		lostOp := &ops.LostFiles{FailedOwner: failed, LostFiles: lost}
		if err := p.Queue.Push(ctx, ops.Dispatch{Kind: ops.DestTCPDial, Addrs: addrs, Op: lostOp}); err != nil {
			return err
		}
	}
	// Applying LOST locally too: the master is a node like any other
	// and must de-own before recomputing a replacement, else its own
	// count of failed's owner set never shrinks.
	for _, f := range lost {
		p.State.RemoveOwner(f, failed)
	}

	var result *multierror.Error
	for _, f := range lost {
		if err := p.repairOne(ctx, f); err != nil {
			p.log().Error("no new owners available", "file", f, "err", err)
			result = multierror.Append(result, err)
		}
	}
	if p.Metrics != nil {
		p.Metrics.RepairsPerformed.Inc()
	}
	return result.ErrorOrNil()
}

// repairOne picks the first ring-computed candidate not already in
// f's current owner set, and gossips NFO{f, {candidate}, from_failure:
// true} (spec.md §4.6 steps 3-4).
func (p *Placement) repairOne(ctx context.Context, f string) error {
	candidates, err := p.ComputedOwners(f)
	if err != nil {
		return err
	}

	current := make(map[id.ID]struct{})
	for _, o := range p.State.Owners(f) {
		current[o] = struct{}{}
	}

	var newOwner id.ID
	found := false
	for _, c := range candidates {
		if _, exists := current[c]; !exists {
			newOwner = c
			found = true
			break
		}
	}
	if !found {
		return rerr.PlacementFailure.Errorf("no new owners available for %s", f)
	}

	addrs := p.tcpAddrsFor(p.State.Successors())
	if len(addrs) == 0 {
		return nil
	}
	nfo := &ops.NewOwners{File: f, NewOwners: []id.ID{newOwner}, FromFailure: true}
	return p.Queue.Push(ctx, ops.Dispatch{Kind: ops.DestTCPDial, Addrs: addrs, Op: nfo})
}
