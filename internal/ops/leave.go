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

// Leave is the LEAV operation of spec.md §4.1: {id}.
type Leave struct {
	ID id.ID
}

func DecodeLeave(payload []byte) (*Leave, error) {
	d := wire.NewDecoder(payload)
	s, err := d.String()
	if err != nil {
		return nil, err
	}
	return &Leave{ID: id.ID(s)}, nil
}

func (l *Leave) Tag() wire.Tag { return wire.TagLeave }

func (l *Leave) ToBytes() []byte {
	payload := wire.NewEncoder().String(string(l.ID)).Bytes()
	return wire.Encode(wire.TagLeave, payload)
}

func (l *Leave) String() string { return fmt.Sprintf("LEAV{%s}", l.ID) }

// Execute removes the ID if present, and — only if a removal actually
// occurred — forwards the same LEAV to the (now-recomputed) successor
// list. A no-op removal is the gossip termination condition
// (spec.md §4.3).
func (l *Leave) Execute(rt *Runtime) ([]Dispatch, error) {
	if !rt.State.RemoveMember(l.ID) {
		return nil, nil
	}

	succ := rt.State.Successors()
	if len(succ) == 0 {
		return nil, nil
	}
	addrs := make([]string, 0, len(succ))
	for _, s := range succ {
		addrs = append(addrs, s.Addr())
	}

	return []Dispatch{{Kind: DestUDP, Addrs: addrs, Op: &Leave{ID: l.ID}}}, nil
}
