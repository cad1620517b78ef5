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

// Join is the JOIN operation of spec.md §4.1: {id, tcp_addr}.
type Join struct {
	ID      id.ID
	TCPAddr string
}

func DecodeJoin(payload []byte) (*Join, error) {
	d := wire.NewDecoder(payload)
	idStr, err := d.String()
	if err != nil {
		return nil, err
	}
	tcp, err := d.String()
	if err != nil {
		return nil, err
	}
	return &Join{ID: id.ID(idStr), TCPAddr: tcp}, nil
}

func (j *Join) Tag() wire.Tag { return wire.TagJoin }

func (j *Join) ToBytes() []byte {
	payload := wire.NewEncoder().String(string(j.ID)).String(j.TCPAddr).Bytes()
	return wire.Encode(wire.TagJoin, payload)
}

func (j *Join) String() string { return fmt.Sprintf("JOIN{%s,%s}", j.ID, j.TCPAddr) }

// Execute inserts the new ID, records its TCP endpoint, recomputes
// neighbors, then emits an NMEM fan-out to the whole membership plus a
// unicast MLIS snapshot back to the joiner (spec.md §4.3).
func (j *Join) Execute(rt *Runtime) ([]Dispatch, error) {
	rt.State.InsertMember(j.ID, j.TCPAddr)

	members := rt.State.Members()
	addrs := make([]string, 0, len(members))
	for _, m := range members {
		addrs = append(addrs, m.Addr())
	}

	nmem := &NewMember{ID: j.ID, TCPAddr: j.TCPAddr}
	snap := &Snapshot{Members: members, UDPToTCP: rt.State.UDPToTCPSnapshot()}

	return []Dispatch{
		{Kind: DestUDP, Addrs: addrs, Op: nmem},
		{Kind: DestUDP, Addrs: []string{j.ID.Addr()}, Op: snap},
	}, nil
}
