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

// Snapshot is the MLIS full-membership operation of spec.md §4.1:
// {members: [ID], udp_to_tcp: map<string,string>}.
type Snapshot struct {
	Members  []id.ID
	UDPToTCP map[string]string
}

func DecodeSnapshot(payload []byte) (*Snapshot, error) {
	d := wire.NewDecoder(payload)
	members, err := d.StringSet()
	if err != nil {
		return nil, err
	}
	m, err := d.StringMap()
	if err != nil {
		return nil, err
	}
	ids := make([]id.ID, len(members))
	for i, s := range members {
		ids[i] = id.ID(s)
	}
	return &Snapshot{Members: ids, UDPToTCP: m}, nil
}

func (s *Snapshot) Tag() wire.Tag { return wire.TagSnapshot }

func (s *Snapshot) ToBytes() []byte {
	strs := make([]string, len(s.Members))
	for i, m := range s.Members {
		strs[i] = string(m)
	}
	payload := wire.NewEncoder().StringSet(strs).StringMap(s.UDPToTCP).Bytes()
	return wire.Encode(wire.TagSnapshot, payload)
}

func (s *Snapshot) String() string { return fmt.Sprintf("MLIS{%d members}", len(s.Members)) }

// Execute set-unions the received membership and UDP→TCP map into
// local state and recomputes neighbors (spec.md §4.3).
func (s *Snapshot) Execute(rt *Runtime) ([]Dispatch, error) {
	rt.State.MergeSnapshot(s.Members, s.UDPToTCP)
	return nil, nil
}
