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

package ops

import (
	"fmt"

	"github.com/nabbar-ring/ringnode/internal/id"
	"github.com/nabbar-ring/ringnode/internal/wire"
)

// LostFiles is the LOST master-announcement operation of spec.md §4.1:
// {failed_owner, lost_files}.
type LostFiles struct {
	FailedOwner id.ID
	LostFiles   []string
}

func DecodeLostFiles(payload []byte) (*LostFiles, error) {
	d := wire.NewDecoder(payload)
	fo, err := d.String()
	if err != nil {
		return nil, err
	}
	lf, err := d.StringSet()
	if err != nil {
		return nil, err
	}
	return &LostFiles{FailedOwner: id.ID(fo), LostFiles: lf}, nil
}

func (l *LostFiles) Tag() wire.Tag { return wire.TagLostFiles }

func (l *LostFiles) ToBytes() []byte {
	payload := wire.NewEncoder().String(string(l.FailedOwner)).StringSet(l.LostFiles).Bytes()
	return wire.Encode(wire.TagLostFiles, payload)
}

func (l *LostFiles) String() string {
	return fmt.Sprintf("LOST{%s, %d files}", l.FailedOwner, len(l.LostFiles))
}

// Execute removes FailedOwner from the owner set of each file in
// LostFiles whose owner set actually contained it, then — only if any
// removal occurred — forwards the same LOST to successors
// (spec.md §4.5's "Receiving LOST").
func (l *LostFiles) Execute(rt *Runtime) ([]Dispatch, error) {
	anyRemoved := false
	for _, f := range l.LostFiles {
		if rt.State.RemoveOwner(f, l.FailedOwner) {
			anyRemoved = true
		}
	}
	if !anyRemoved {
		return nil, nil
	}

	succ := rt.State.Successors()
	addrs := tcpAddrsFor(rt, succ)
	if len(addrs) == 0 {
		return nil, nil
	}

	return []Dispatch{{
		Kind:  DestTCPDial,
		Addrs: addrs,
		Op:    &LostFiles{FailedOwner: l.FailedOwner, LostFiles: l.LostFiles},
	}}, nil
}
