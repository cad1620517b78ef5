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

// NewMember is the NMEM gossip operation of spec.md §4.1: {id, tcp_addr}.
type NewMember struct {
	ID      id.ID
	TCPAddr string
}

func DecodeNewMember(payload []byte) (*NewMember, error) {
	d := wire.NewDecoder(payload)
	idStr, err := d.String()
	if err != nil {
		return nil, err
	}
	tcp, err := d.String()
	if err != nil {
		return nil, err
	}
	return &NewMember{ID: id.ID(idStr), TCPAddr: tcp}, nil
}

func (n *NewMember) Tag() wire.Tag { return wire.TagNewMember }

func (n *NewMember) ToBytes() []byte {
	payload := wire.NewEncoder().String(string(n.ID)).String(n.TCPAddr).Bytes()
	return wire.Encode(wire.TagNewMember, payload)
}

func (n *NewMember) String() string { return fmt.Sprintf("NMEM{%s,%s}", n.ID, n.TCPAddr) }

// Execute inserts the ID, records its TCP endpoint, and recomputes
// neighbors. No forwarding (spec.md §4.3).
func (n *NewMember) Execute(rt *Runtime) ([]Dispatch, error) {
	rt.State.InsertMember(n.ID, n.TCPAddr)
	return nil, nil
}
