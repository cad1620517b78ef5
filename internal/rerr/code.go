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

// Package rerr provides the error-code/hierarchy scheme used across ringnode.
//
// It is a trimmed rendition of the "code + parent chain + stack frame"
// error model: every error raised by the node kernel carries a CodeError
// classifying its severity bucket from spec.md §7 (argument, not-joined,
// protocol integrity, transport, placement), an optional chain of parent
// causes, and the file/line where it was raised.
package rerr

import (
	"strconv"
)

// CodeError classifies an Error into one of the severity buckets of
// spec.md §7. It is intentionally small and closed, unlike a generic
// HTTP-style code space: the node only ever raises these kinds.
type CodeError uint16

const (
	// Unknown is the fallback bucket for errors that do not (yet) carry
	// a more specific classification.
	Unknown CodeError = iota
	// ArgumentError covers bad CLI arguments or bad console commands.
	ArgumentError
	// NotJoined covers file or leave operations attempted before join.
	NotJoined
	// ProtocolIntegrity covers forged heartbeat sources, future
	// timestamps, and unknown op-tags.
	ProtocolIntegrity
	// TransportError covers UDP/TCP send, read, write, and connect
	// failures.
	TransportError
	// PlacementFailure covers "no new owners available" during repair.
	PlacementFailure
)

var names = map[CodeError]string{
	Unknown:           "unknown error",
	ArgumentError:     "argument error",
	NotJoined:         "not joined",
	ProtocolIntegrity: "protocol integrity error",
	TransportError:    "transport error",
	PlacementFailure:  "placement failure",
}

// String returns the human-readable bucket name.
func (c CodeError) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "code(" + strconv.Itoa(int(c)) + ")"
}

// Error builds a new Error of this code, wrapping the given parents.
func (c CodeError) Error(parents ...error) Error {
	return newError(c, c.String(), parents...)
}

// Errorf builds a new Error of this code with a formatted message.
func (c CodeError) Errorf(format string, args ...interface{}) Error {
	return newErrorf(c, format, args...)
}
