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

// NewOwners is the NFO placement-gossip operation of spec.md §4.1:
// {file, new_owners, from_failure}.
type NewOwners struct {
	File        string
	NewOwners   []id.ID
	FromFailure bool
}

func DecodeNewOwners(payload []byte) (*NewOwners, error) {
	d := wire.NewDecoder(payload)
	f, err := d.String()
	if err != nil {
		return nil, err
	}
	owners, err := d.StringSet()
	if err != nil {
		return nil, err
	}
	ff, err := d.Bool()
	if err != nil {
		return nil, err
	}
	ids := make([]id.ID, len(owners))
	for i, s := range owners {
		ids[i] = id.ID(s)
	}
	return &NewOwners{File: f, NewOwners: ids, FromFailure: ff}, nil
}

func (n *NewOwners) Tag() wire.Tag { return wire.TagNewOwners }

func (n *NewOwners) ToBytes() []byte {
	strs := make([]string, len(n.NewOwners))
	for i, o := range n.NewOwners {
		strs[i] = string(o)
	}
	payload := wire.NewEncoder().String(n.File).StringSet(strs).Bool(n.FromFailure).Bytes()
	return wire.Encode(wire.TagNewOwners, payload)
}

func (n *NewOwners) String() string {
	return fmt.Sprintf("NFO{%s, %d owners, fromFailure=%v}", n.File, len(n.NewOwners), n.FromFailure)
}

// Execute unions NewOwners into the file's authoritative owner set. If
// nothing was actually added the gossip has reached quiescence and no
// forwarding happens. Otherwise the same NFO is forwarded to
// successors, and — only when FromFailure is true and self was among
// the newly added owners — the file content is pulled via rt.Puller
// (spec.md §4.5's "Receiving NFO").
func (n *NewOwners) Execute(rt *Runtime) ([]Dispatch, error) {
	added := rt.State.UnionOwners(n.File, n.NewOwners)
	if len(added) == 0 {
		return nil, nil
	}

	var dispatches []Dispatch

	succ := rt.State.Successors()
	if len(succ) > 0 {
		addrs := tcpAddrsFor(rt, succ)
		if len(addrs) > 0 {
			dispatches = append(dispatches, Dispatch{
				Kind:  DestTCPDial,
				Addrs: addrs,
				Op:    &NewOwners{File: n.File, NewOwners: n.NewOwners, FromFailure: n.FromFailure},
			})
		}
	}

	if n.FromFailure {
		self := rt.State.Self()
		for _, a := range added {
			if a == self {
				if err := rt.Puller(n.File); err != nil {
					rt.log().Error("failed to pull re-replicated file", "file", n.File, "err", err)
				}
				break
			}
		}
	}

	return dispatches, nil
}

// tcpAddrsFor resolves the TCP endpoints for a list of IDs via the
// kernel's UDP→TCP map, skipping any not yet known.
func tcpAddrsFor(rt *Runtime, ids []id.ID) []string {
	out := make([]string, 0, len(ids))
	for _, i := range ids {
		if tcp, ok := rt.State.UDPToTCP(i.Addr()); ok {
			out = append(out, tcp)
		}
	}
	return out
}
