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

package console_test

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/nabbar-ring/ringnode/internal/console"
	"github.com/nabbar-ring/ringnode/internal/id"
	"github.com/nabbar-ring/ringnode/internal/kernel"
	"github.com/nabbar-ring/ringnode/internal/membership"
	"github.com/nabbar-ring/ringnode/internal/placement"
	"github.com/nabbar-ring/ringnode/internal/queue"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func newREPL(t *testing.T, in string) (*console.REPL, *bytes.Buffer, *kernel.State) {
	r, out, s, _ := newREPLWithFiles(t, in)
	return r, out, s
}

func newREPLWithFiles(t *testing.T, in string) (*console.REPL, *bytes.Buffer, *kernel.State, map[string][]byte) {
	t.Helper()
	s := kernel.New(kernel.Config{KSucc: 2, NumOwners: 2})
	q := queue.New(8)
	d := &membership.Driver{State: s, Queue: q}
	files := map[string][]byte{}
	p := &placement.Placement{
		State:     s,
		Queue:     q,
		NumOwners: 2,
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
	}

	out := &bytes.Buffer{}
	r := &console.REPL{
		State:       s,
		Driver:      d,
		Placement:   p,
		SelfUDPAddr: "10.0.0.1:7000",
		SelfTCPAddr: "10.0.0.1:7003",
		In:          strings.NewReader(in),
		Out:         out,
	}
	return r, out, s, files
}

func TestJoinCommandJoinsKernelState(t *testing.T) {
	r, _, s := newREPL(t, "join\n")
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !s.IsJoined() {
		t.Fatal("expected join command to join the kernel state")
	}
}

func TestUnknownCommandReportsAnError(t *testing.T) {
	r, out, _ := newREPL(t, "frobnicate\n")
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "error:") {
		t.Fatalf("expected an error line for an unknown command, got %q", out.String())
	}
}

func TestLsWithNoArgumentListsLocallyOwnedFiles(t *testing.T) {
	r, out, s := newREPL(t, "ls\n")
	s.Join("10.0.0.1:7000|1", "10.0.0.1:7003")
	s.UnionOwners("report.txt", []id.ID{s.Self()})

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "report.txt") {
		t.Fatalf("expected ls to list a locally owned file, got %q", out.String())
	}
}

func TestLsWithArgumentListsOwnerSet(t *testing.T) {
	r, out, s := newREPL(t, "ls report.txt\n")
	s.Join("10.0.0.1:7000|1", "10.0.0.1:7003")
	s.UnionOwners("report.txt", []id.ID{s.Self()})

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "10.0.0.1:7000|1") {
		t.Fatalf("expected ls f to print the owner set, got %q", out.String())
	}
}

func TestPutCommandPublishesFileAndReportsProgress(t *testing.T) {
	r, out, s, files := newREPLWithFiles(t, "join\nput local_report.txt report.txt\n")
	files["local_report.txt"] = []byte("hello ring")

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !s.IsJoined() {
		t.Fatal("expected the join command to run before put")
	}
	if !strings.Contains(out.String(), "published local_report.txt as report.txt") {
		t.Fatalf("expected a published confirmation, got %q", out.String())
	}
}

func TestPrintDumpsMembershipSnapshot(t *testing.T) {
	r, out, s := newREPL(t, "print\n")
	s.Join("10.0.0.1:7000|1", "10.0.0.1:7003")

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "members:") {
		t.Fatalf("expected print to dump membership, got %q", out.String())
	}
}
