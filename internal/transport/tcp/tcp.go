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

// Package tcp implements the FileServer component of spec.md §4.1/
// §4.5: a TCP accept loop that spawns one task per connection, each
// reading exactly one operation before dispatching it, plus the
// outbound Dial helper internal/placement and internal/transport/udp
// inject for one-shot sends and synchronous GET/FILE round trips.
// Grounded on the teacher's socket/server/tcp and socket/client/tcp
// packages as inferred from their test suites (no implementation
// source was present in the retrieval pack for socket/*; see
// DESIGN.md).
package tcp

import (
	"context"
	"net"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nabbar-ring/ringnode/internal/ops"
	"github.com/nabbar-ring/ringnode/internal/queue"
	"github.com/nabbar-ring/ringnode/internal/wire"
)

// Dial opens a TCP connection with a bounded timeout — the concrete
// implementation handed to internal/placement.Placement.Dial and
// internal/transport/udp.Sender.Dial.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: 5 * time.Second}
	return d.DialContext(ctx, "tcp", addr)
}

// FileServer accepts TCP connections and, per spec.md §5's
// "cooperative task scheduler... spawns a task per accepted
// connection", runs each in its own goroutine: read one frame,
// decode, execute, write any DestTCPStream follow-up back on the same
// connection before closing it.
type FileServer struct {
	Listener net.Listener
	Runtime  *ops.Runtime
	Queue    *queue.Queue
	Log      hclog.Logger
}

func (f *FileServer) log() hclog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return hclog.NewNullLogger()
}

// Run accepts connections until ctx is canceled or the listener
// errors.
func (f *FileServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		f.Listener.Close()
	}()

	for {
		conn, err := f.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go f.handle(ctx, conn)
	}
}

func (f *FileServer) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	frame, err := wire.ReadFrame(conn)
	if err != nil {
		f.log().Warn("dropping malformed TCP frame", "remote", conn.RemoteAddr(), "err", err)
		return
	}

	op, err := ops.Decode(frame)
	if err != nil {
		f.log().Warn("dropping undecodable TCP operation", "remote", conn.RemoteAddr(), "err", err)
		return
	}

	// FileServer runs one goroutine per connection, so each gets its
	// own shallow Runtime copy carrying this connection's ReplyStream
	// and Source — the shared *kernel.State pointer underneath is
	// still the single source of truth, guarded by its own lock.
	rt := *f.Runtime
	rt.ReplyStream = conn
	rt.Source = conn.RemoteAddr().String()

	dispatches, err := op.Execute(&rt)
	if err != nil {
		f.log().Warn("operation execute failed", "op", op.String(), "remote", conn.RemoteAddr(), "err", err)
		return
	}

	for _, d := range dispatches {
		if d.Kind == ops.DestTCPStream {
			if _, err := conn.Write(d.Op.ToBytes()); err != nil {
				f.log().Warn("reply write failed", "remote", conn.RemoteAddr(), "err", err)
			}
			continue
		}
		if err := f.Queue.Push(ctx, d); err != nil && ctx.Err() == nil {
			f.log().Error("failed to enqueue follow-up dispatch", "err", err)
		}
	}
}
