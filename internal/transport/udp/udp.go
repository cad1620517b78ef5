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

// Package udp implements the Receiver and Sender components of
// spec.md §4.4: blocking reads of UDP datagrams into the operation
// taxonomy, and draining the outbound queue back onto the wire. The
// package API shape (a constructor over a packet connection, a
// blocking Run driven by context cancellation) is grounded on the
// teacher's socket/server/udp and socket/client/udp packages as
// inferred from their test suites — the retrieval pack carries only
// those tests, no implementation source, so the body below is a
// fresh, stdlib-net rendition of the contract those tests describe
// rather than adapted teacher source (see DESIGN.md).
package udp

import (
	"bytes"
	"context"
	"net"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nabbar-ring/ringnode/internal/kernel"
	"github.com/nabbar-ring/ringnode/internal/metrics"
	"github.com/nabbar-ring/ringnode/internal/ops"
	"github.com/nabbar-ring/ringnode/internal/queue"
	"github.com/nabbar-ring/ringnode/internal/wire"
)

// Receiver performs the blocking UDP read loop of spec.md §4.1/§4.3:
// one datagram is exactly one wire frame, decoded into a typed
// operation, executed against Runtime, with any resulting dispatches
// handed to Queue.
type Receiver struct {
	Conn    *net.UDPConn
	Runtime *ops.Runtime
	Queue   *queue.Queue
	Log     hclog.Logger

	// Metrics, if set, is fed heartbeats-received counts. Optional so
	// tests can build a bare Receiver.
	Metrics *metrics.Metrics
}

func (r *Receiver) log() hclog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return hclog.NewNullLogger()
}

// Run reads datagrams until ctx is canceled or the connection errors.
func (r *Receiver) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		r.Conn.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		n, addr, err := r.Conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		frame, err := wire.ReadFrame(bytes.NewReader(buf[:n]))
		if err != nil {
			r.log().Warn("dropping malformed datagram", "from", addr.String(), "err", err)
			continue
		}

		op, err := ops.Decode(frame)
		if err != nil {
			r.log().Warn("dropping undecodable operation", "from", addr.String(), "err", err)
			continue
		}

		r.Runtime.Source = addr.String()
		dispatches, err := op.Execute(r.Runtime)
		if err != nil {
			r.log().Warn("operation execute failed", "op", op.String(), "from", addr.String(), "err", err)
			continue
		}
		if _, ok := op.(*ops.Heartbeat); ok && r.Metrics != nil {
			r.Metrics.HeartbeatsRecv.Inc()
		}
		if err := r.Queue.PushAll(ctx, dispatches); err != nil && ctx.Err() == nil {
			r.log().Error("failed to enqueue follow-up dispatches", "err", err)
		}
	}
}

// Dialer opens a TCP connection for DestTCPDial dispatches — the
// seam the Sender uses without importing internal/transport/tcp
// directly, matching the injected-Dial convention already used by
// internal/placement.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

// Sender drains the outbound Queue (spec.md §4.4) and periodically
// emits HB{self} to the successor list (spec.md §4.3's heartbeats).
type Sender struct {
	Conn  *net.UDPConn
	State *kernel.State
	Queue *queue.Queue
	Log   hclog.Logger

	HeartbeatTick time.Duration
	Dial          Dialer

	// Metrics, if set, is fed heartbeats-sent counts. Optional so tests
	// can build a bare Sender.
	Metrics *metrics.Metrics
}

func (s *Sender) log() hclog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return hclog.NewNullLogger()
}

// Run drains dispatches and ticks heartbeats concurrently until ctx
// is canceled.
func (s *Sender) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() { errCh <- s.Queue.Drain(ctx, s.send) }()
	go func() { errCh <- s.heartbeatLoop(ctx) }()

	err := <-errCh
	return err
}

func (s *Sender) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.HeartbeatTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.emitHeartbeat(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Sender) emitHeartbeat(ctx context.Context) {
	if !s.State.IsJoined() {
		return
	}
	succ := s.State.Successors()
	if len(succ) == 0 {
		return
	}
	addrs := make([]string, 0, len(succ))
	for _, i := range succ {
		addrs = append(addrs, i.Addr())
	}
	hb := &ops.Heartbeat{ID: s.State.Self()}
	if err := s.send(ops.Dispatch{Kind: ops.DestUDP, Addrs: addrs, Op: hb}); err != nil {
		s.log().Error("failed to send heartbeat", "err", err)
		return
	}
	if s.Metrics != nil {
		s.Metrics.HeartbeatsSent.Inc()
	}
}

func (s *Sender) send(d ops.Dispatch) error {
	frame := d.Op.ToBytes()

	switch d.Kind {
	case ops.DestUDP:
		for _, a := range d.Addrs {
			raddr, err := net.ResolveUDPAddr("udp", a)
			if err != nil {
				s.log().Warn("unresolvable UDP destination", "addr", a, "err", err)
				continue
			}
			if _, err := s.Conn.WriteToUDP(frame, raddr); err != nil {
				s.log().Warn("udp write failed", "addr", a, "err", err)
			}
		}
	case ops.DestTCPDial:
		for _, a := range d.Addrs {
			conn, err := s.Dial(context.Background(), a)
			if err != nil {
				s.log().Warn("tcp dial failed", "addr", a, "err", err)
				continue
			}
			if _, err := conn.Write(frame); err != nil {
				s.log().Warn("tcp write failed", "addr", a, "err", err)
			}
			conn.Close()
		}
	case ops.DestTCPStream:
		if d.Stream != nil {
			if _, err := d.Stream.Write(frame); err != nil {
				s.log().Warn("tcp stream write failed", "err", err)
			}
		}
	}
	return nil
}
