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
	"github.com/nabbar-ring/ringnode/internal/rerr"
	"github.com/nabbar-ring/ringnode/internal/wire"
)

// Heartbeat is the HB operation of spec.md §4.1: {id}.
type Heartbeat struct {
	ID id.ID
}

func DecodeHeartbeat(payload []byte) (*Heartbeat, error) {
	d := wire.NewDecoder(payload)
	s, err := d.String()
	if err != nil {
		return nil, err
	}
	return &Heartbeat{ID: id.ID(s)}, nil
}

func (h *Heartbeat) Tag() wire.Tag { return wire.TagHeartbeat }

func (h *Heartbeat) ToBytes() []byte {
	payload := wire.NewEncoder().String(string(h.ID)).Bytes()
	return wire.Encode(wire.TagHeartbeat, payload)
}

func (h *Heartbeat) String() string { return fmt.Sprintf("HB{%s}", h.ID) }

// Execute rejects the frame if the observed UDP source does not match
// the address embedded in the heartbeat's ID — "the only
// authentication the core performs" (spec.md §4.3) — then updates the
// predecessor-timestamp map if the sender is currently a predecessor.
func (h *Heartbeat) Execute(rt *Runtime) ([]Dispatch, error) {
	if h.ID.Addr() != rt.Source {
		return nil, rerr.ProtocolIntegrity.Errorf("heartbeat source %s does not match embedded id %s", rt.Source, h.ID)
	}

	if _, err := rt.State.TouchHeartbeat(h.ID, rt.now()); err != nil {
		return nil, err
	}
	return nil, nil
}
