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

package ops_test

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/nabbar-ring/ringnode/internal/id"
	"github.com/nabbar-ring/ringnode/internal/kernel"
	"github.com/nabbar-ring/ringnode/internal/ops"
	"github.com/nabbar-ring/ringnode/internal/wire"
)

func newRuntime(s *kernel.State) *ops.Runtime {
	files := map[string][]byte{}
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

func roundTrip(t *testing.T, op ops.Operation) ops.Operation {
	t.Helper()
	frame, err := wire.ReadFrame(bytes.NewReader(op.ToBytes()))
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := ops.Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	return decoded
}

func TestHeartbeatToBytesRoundTrip(t *testing.T) {
	hb := &ops.Heartbeat{ID: "10.0.0.1:7000|100"}
	got := roundTrip(t, hb).(*ops.Heartbeat)
	if got.ID != hb.ID {
		t.Fatalf("unexpected round trip: %v", got)
	}
}

func TestHeartbeatRejectsForgedSource(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join("A|1", "tcp:A")
	s.InsertMember("B|1", "tcp:B")
	rt := newRuntime(s)
	rt.Source = "evil:1"

	hb := &ops.Heartbeat{ID: "B|1"}
	_, err := hb.Execute(rt)
	if err == nil {
		t.Fatal("expected source mismatch to be rejected")
	}
}

func TestJoinExecuteProducesFanoutAndSnapshot(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join("A|1", "tcp:A")
	rt := newRuntime(s)

	j := &ops.Join{ID: "B|1", TCPAddr: "tcp:B"}
	dispatches, err := j.Execute(rt)
	if err != nil {
		t.Fatal(err)
	}
	if len(dispatches) != 2 {
		t.Fatalf("expected fanout + snapshot, got %d", len(dispatches))
	}
	if _, ok := dispatches[1].Op.(*ops.Snapshot); !ok {
		t.Fatalf("expected second dispatch to be a snapshot")
	}
}

func TestLeaveGossipTerminatesWhenNoRemovalOccurs(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join("A|1", "tcp:A")
	rt := newRuntime(s)

	l := &ops.Leave{ID: "ghost|1"}
	dispatches, err := l.Execute(rt)
	if err != nil {
		t.Fatal(err)
	}
	if dispatches != nil {
		t.Fatalf("expected no forwarding when nothing was removed, got %v", dispatches)
	}
}

func TestApplyingJoinTwiceIsIdempotent(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join("A|1", "tcp:A")
	rt := newRuntime(s)

	j := &ops.Join{ID: "B|1", TCPAddr: "tcp:B"}
	j.Execute(rt)
	j.Execute(rt)

	members := s.Members()
	if len(members) != 2 {
		t.Fatalf("expected membership size 2 after duplicate join, got %d", len(members))
	}
}

func TestNewOwnersQuiescenceAndFailurePull(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join("A|1", "tcp:A")
	s.InsertMember("B|1", "tcp:B")

	pulled := false
	rt := newRuntime(s)
	rt.Puller = func(file string) error {
		pulled = true
		return nil
	}

	n := &ops.NewOwners{File: "f1", NewOwners: []id.ID{"A|1"}, FromFailure: true}
	if _, err := n.Execute(rt); err != nil {
		t.Fatal(err)
	}
	if !pulled {
		t.Fatal("expected self's addition from a failure-driven NFO to trigger a pull")
	}

	// second application changes nothing: quiescence.
	dispatches, err := n.Execute(rt)
	if err != nil {
		t.Fatal(err)
	}
	if dispatches != nil {
		t.Fatalf("expected no forwarding on repeat NFO, got %v", dispatches)
	}
}

func TestLostFilesRemovesOwnerAndForwardsOnlyOnChange(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	s.Join("A|1", "tcp:A")
	s.InsertMember("B|1", "tcp:B")
	s.UnionOwners("f1", []id.ID{"A|1", "B|1"})

	rt := newRuntime(s)
	l := &ops.LostFiles{FailedOwner: "B|1", LostFiles: []string{"f1"}}
	if _, err := l.Execute(rt); err != nil {
		t.Fatal(err)
	}
	owners := s.Owners("f1")
	if len(owners) != 1 || owners[0] != "A|1" {
		t.Fatalf("unexpected owners after LOST: %v", owners)
	}

	dispatches, err := l.Execute(rt)
	if err != nil {
		t.Fatal(err)
	}
	if dispatches != nil {
		t.Fatalf("expected no forwarding when nothing changed, got %v", dispatches)
	}
}

func TestFileWritesDistributedPathUnderDataDir(t *testing.T) {
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	rt := newRuntime(s)

	f := &ops.File{Filename: "f1", Data: []byte("hello"), IsDistributed: true}
	if _, err := f.Execute(rt); err != nil {
		t.Fatal(err)
	}

	got, err := rt.ReadFile("/data/f1")
	if err != nil || string(got) != "hello" {
		t.Fatalf("unexpected stored content: %v %v", got, err)
	}
}
