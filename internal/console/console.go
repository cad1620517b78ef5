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

// Package console implements the node's interactive REPL (spec.md
// §6): join, leave, print, ls [f], get f local_path, put local_path f.
// Colored output follows the teacher's console package's ColorType
// convention, rendered through github.com/fatih/color with
// github.com/mattn/go-colorable wrapping stdout so ANSI sequences
// behave on Windows consoles as well as ttys.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/nabbar-ring/ringnode/internal/kernel"
	"github.com/nabbar-ring/ringnode/internal/membership"
	"github.com/nabbar-ring/ringnode/internal/placement"
)

// ColorType mirrors the teacher's console.ColorType: a named color
// scheme rather than one-off color.New calls scattered through the
// REPL.
type ColorType uint8

const (
	ColorInfo ColorType = iota
	ColorError
	ColorPrompt
	ColorData
)

var palette = map[ColorType]*color.Color{
	ColorInfo:   color.New(color.FgCyan),
	ColorError:  color.New(color.FgRed, color.Bold),
	ColorPrompt: color.New(color.FgGreen),
	ColorData:   color.New(color.FgWhite),
}

func (c ColorType) Fprintf(w io.Writer, format string, args ...interface{}) {
	if p, ok := palette[c]; ok {
		p.Fprintf(w, format, args...)
		return
	}
	fmt.Fprintf(w, format, args...)
}

// REPL reads commands from In and writes output to Out, driving the
// node's membership.Driver and placement.Placement against the shared
// kernel.State (spec.md §6's command list, supplemented with full
// ls/print semantics per SPEC_FULL.md §4.6).
type REPL struct {
	State     *kernel.State
	Driver    *membership.Driver
	Placement *placement.Placement

	SelfUDPAddr string
	SelfTCPAddr string

	In  io.Reader
	Out io.Writer
}

// NewStdREPL builds a REPL wired to os.Stdin/os.Stdout, with Out
// wrapped by go-colorable so color.Color escape codes render
// correctly on every platform the teacher's console package targets.
func NewStdREPL(state *kernel.State, driver *membership.Driver, pl *placement.Placement, selfUDP, selfTCP string) *REPL {
	return &REPL{
		State:       state,
		Driver:      driver,
		Placement:   pl,
		SelfUDPAddr: selfUDP,
		SelfTCPAddr: selfTCP,
		In:          os.Stdin,
		Out:         colorable.NewColorableStdout(),
	}
}

// Run blocks reading one command per line until ctx is canceled or In
// is exhausted.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.In)
	for {
		ColorPrompt.Fprintf(r.Out, "ringnode> ")

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.dispatch(ctx, line)
	}
}

func (r *REPL) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "join":
		err = r.Driver.Join(ctx, r.SelfUDPAddr, r.SelfTCPAddr, time.Now())
	case "leave":
		err = r.Driver.Leave(ctx)
	case "print":
		r.printState()
	case "ls":
		r.list(args)
	case "get":
		err = r.get(ctx, args)
	case "put":
		err = r.put(ctx, args)
	default:
		err = fmt.Errorf("unknown command %q (expected join|leave|print|ls [f]|get f local_path|put local_path f)", cmd)
	}

	if err != nil {
		ColorError.Fprintf(r.Out, "error: %v\n", err)
	}
}

func (r *REPL) get(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: get f local_path")
	}
	// The distributed file's size isn't known until the FILE reply
	// arrives, so the fetch is shown as an indeterminate spinner rather
	// than a byte-counted bar.
	if err := withProgress(r.Out, "get "+args[0], 0, func() error {
		return r.Placement.Get(ctx, args[0], args[1])
	}); err != nil {
		return err
	}
	ColorInfo.Fprintf(r.Out, "fetched %s -> %s\n", args[0], args[1])
	return nil
}

func (r *REPL) put(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: put local_path f")
	}
	var size int64
	if fi, err := os.Stat(args[0]); err == nil {
		size = fi.Size()
	}
	if err := withProgress(r.Out, "put "+args[1], size, func() error {
		return r.Placement.Put(ctx, args[0], args[1])
	}); err != nil {
		return err
	}
	ColorInfo.Fprintf(r.Out, "published %s as %s\n", args[0], args[1])
	return nil
}

// withProgress renders an mpb bar for the duration of fn: a byte-sized
// bar when total is known (put, from the local file's size), or a
// spinner when it isn't (get, whose size only becomes known once the
// transfer completes). Grounded on the teacher's semaphore/nobar
// progress-reporting concern, which wraps github.com/vbauerster/mpb/v8
// the same way but has no implementation source in the retrieval pack
// (only tests) — mpb is used here directly instead of through that
// untranslatable wrapper.
func withProgress(out io.Writer, label string, total int64, fn func() error) error {
	p := mpb.New(mpb.WithOutput(out), mpb.WithWidth(40))

	var bar *mpb.Bar
	if total > 0 {
		bar = p.New(total,
			mpb.BarStyle(),
			mpb.PrependDecorators(decor.Name(label)),
			mpb.AppendDecorators(decor.Percentage()),
		)
	} else {
		bar = p.New(1,
			mpb.SpinnerStyle().PositionLeft(),
			mpb.PrependDecorators(decor.Name(label)),
		)
	}

	err := fn()

	if total > 0 {
		bar.SetCurrent(total)
	} else {
		bar.SetCurrent(1)
	}
	p.Wait()
	return err
}

// list implements `ls` with no argument (distributed files whose
// owner set contains self; DATA_DIR itself is not scanned) and `ls f`
// (current owner set for f), the
// full semantics SPEC_FULL.md supplements onto spec.md §6's bare
// command name.
func (r *REPL) list(args []string) {
	if len(args) == 1 {
		owners := r.State.Owners(args[0])
		if len(owners) == 0 {
			ColorData.Fprintf(r.Out, "%s: no known owners\n", args[0])
			return
		}
		for _, o := range owners {
			ColorData.Fprintf(r.Out, "%s\n", string(o))
		}
		return
	}

	files := r.State.AllFiles()
	sort.Strings(files)
	self := r.State.Self()
	for _, f := range files {
		for _, o := range r.State.Owners(f) {
			if o == self {
				ColorData.Fprintf(r.Out, "%s\n", f)
				break
			}
		}
	}
}

// printState dumps the full kernel snapshot — membership, successor/
// predecessor lists, and the UDP→TCP map — the other half of
// SPEC_FULL.md's original_source/-supplemented `print` command.
func (r *REPL) printState() {
	ColorInfo.Fprintf(r.Out, "self: %s\n", string(r.State.Self()))
	ColorInfo.Fprintf(r.Out, "members:\n")
	for _, m := range r.State.Members() {
		ColorData.Fprintf(r.Out, "  %s\n", string(m))
	}
	ColorInfo.Fprintf(r.Out, "successors:\n")
	for _, s := range r.State.Successors() {
		ColorData.Fprintf(r.Out, "  %s\n", string(s))
	}
	ColorInfo.Fprintf(r.Out, "predecessors:\n")
	for _, p := range r.State.Predecessors() {
		ColorData.Fprintf(r.Out, "  %s\n", string(p))
	}
	ColorInfo.Fprintf(r.Out, "udp -> tcp:\n")
	for udp, tcp := range r.State.UDPToTCPSnapshot() {
		ColorData.Fprintf(r.Out, "  %s -> %s\n", udp, tcp)
	}
}
