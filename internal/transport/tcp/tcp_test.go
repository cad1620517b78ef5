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

package tcp_test

import (
	"bytes"
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/nabbar-ring/ringnode/internal/id"
	"github.com/nabbar-ring/ringnode/internal/kernel"
	"github.com/nabbar-ring/ringnode/internal/ops"
	"github.com/nabbar-ring/ringnode/internal/queue"
	"github.com/nabbar-ring/ringnode/internal/transport/tcp"
	"github.com/nabbar-ring/ringnode/internal/wire"
)

func newRuntime(s *kernel.State, files map[string][]byte) *ops.Runtime {
	return &ops.Runtime{
		State:   s,
		DataDir: "/data",
		Now:     func() time.Time { return time.Unix(1000, 0) },
		ReadFile: func(path string) ([]byte, error) {
			if d, ok := files[path]; ok {
				return d, nil
			}
			return nil, os.ErrNotExist
		},
		WriteFile: func(path string, data []byte) error {
			files[path] = data
			return nil
		},
		Puller: func(file string) error { return nil },
	}
}

func startFileServer(t *testing.T, rt *ops.Runtime, q *queue.Queue) net.Addr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	fs := &tcp.FileServer{Listener: ln, Runtime: rt, Queue: q}
	ctx, cancel := context.WithCancel(context.Background())
	go fs.Run(ctx)
	t.Cleanup(cancel)

	return ln.Addr()
}

func TestGetRoundTripReturnsFileOnSameConnection(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join(id.ID("A|1"), "tcp:A")

	files := map[string][]byte{"/data/report.txt": []byte("hello ring")}
	rt := newRuntime(s, files)
	q := queue.New(8)

	addr := startFileServer(t, rt, q)

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	get := &ops.Get{DistributedFilename: "report.txt", LocalPath: "local_report.txt"}
	if _, err := conn.Write(get.ToBytes()); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("expected a FILE reply, got error: %v", err)
	}
	if frame.Tag != wire.TagFile {
		t.Fatalf("expected FILE tag, got %v", frame.Tag)
	}

	reply, err := ops.DecodeFile(frame.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Filename != "local_report.txt" || !bytes.Equal(reply.Data, []byte("hello ring")) {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestNonReplyOperationIsEnqueuedNotWrittenBack(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join(id.ID("A|1"), "tcp:A")
	s.InsertMember(id.ID("B|1"), "tcp:B")

	files := map[string][]byte{}
	rt := newRuntime(s, files)
	q := queue.New(8)

	addr := startFileServer(t, rt, q)

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	nfo := &ops.NewOwners{File: "f1", NewOwners: []id.ID{"A|1"}, FromFailure: false}
	if _, err := conn.Write(nfo.ToBytes()); err != nil {
		t.Fatal(err)
	}

	// NFO's Execute produces a DestTCPDial forward to successors, not a
	// DestTCPStream reply, so nothing should ever arrive back on conn.
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 8)
	if _, err := conn.Read(buf); err == nil {
		t.Fatal("expected no reply written back on the request connection")
	}
	conn.Close()

	drained := make(chan ops.Dispatch, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Drain(ctx, func(d ops.Dispatch) error {
		select {
		case drained <- d:
		default:
		}
		return nil
	})

	select {
	case d := <-drained:
		if d.Kind != ops.DestTCPDial {
			t.Fatalf("expected a DestTCPDial follow-up, got %v", d.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected the NFO forward to be enqueued")
	}
}

func TestMalformedFrameIsDroppedWithoutCrashingAcceptLoop(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join(id.ID("A|1"), "tcp:A")

	rt := newRuntime(s, map[string][]byte{"/data/report.txt": []byte("ok")})
	q := queue.New(8)

	addr := startFileServer(t, rt, q)

	bad, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	bad.Write([]byte{0x01, 0x02, 0x03})
	bad.Close()

	// The listener must still be serving afterwards.
	good, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("accept loop did not survive a malformed frame: %v", err)
	}
	defer good.Close()

	get := &ops.Get{DistributedFilename: "report.txt", LocalPath: "out.txt"}
	good.Write(get.ToBytes())
	good.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := wire.ReadFrame(good); err != nil {
		t.Fatalf("expected the connection after the bad one to work, got %v", err)
	}
}
