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

// Package ops implements the closed operation taxonomy of spec.md §4.1:
// each wire tag maps to exactly one Operation variant, carrying its own
// ToBytes/Execute behavior. The tag universe is closed by design — new
// operations are added by extending this package, not by open-world
// runtime polymorphism (see DESIGN.md "Polymorphic operations").
package ops

import (
	"net"

	"github.com/nabbar-ring/ringnode/internal/wire"
)

// DestKind selects how a Dispatch's Addrs/Stream field should be
// interpreted, mirroring the three destination kinds of spec.md §4.4.
type DestKind int

const (
	// DestUDP sends the operation as a UDP datagram to each address.
	DestUDP DestKind = iota
	// DestTCPDial opens a fresh TCP connection to each address, writes
	// the frame, and closes it — used for one-shot deliveries like
	// NFO/LOST gossip and outbound GET/FILE/put transfers.
	DestTCPDial
	// DestTCPStream writes the frame to an already-open TCP stream,
	// the FileServer reply path (e.g. a GET's FILE response).
	DestTCPStream
)

// Dispatch is a single (destination, operation) pair produced by an
// Execute call and handed to the outbound queue (spec.md §4.4). The
// operation is serialized exactly once per Dispatch and written to
// every address in Addrs (for DestUDP/DestTCPDial) or to Stream (for
// DestTCPStream).
type Dispatch struct {
	Kind   DestKind
	Addrs  []string
	Stream net.Conn
	Op     Operation
}

// Operation is the capability set every wire operation implements:
// spec.md §9's "{to_bytes, execute(source) → [Op], to_string}".
type Operation interface {
	// Tag returns this operation's 4-byte wire tag.
	Tag() wire.Tag
	// ToBytes serializes the full wire frame (header + payload).
	ToBytes() []byte
	// Execute applies the operation's effect against rt and returns
	// zero or more follow-up dispatches.
	Execute(rt *Runtime) ([]Dispatch, error)
	// String renders a short human-readable description, for logging.
	String() string
}
