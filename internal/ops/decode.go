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
	"github.com/nabbar-ring/ringnode/internal/wire"
)

// Decode dispatches on frame.Tag to build the typed Operation it
// carries. An unrecognized tag yields wire.ErrUnknownTag; the receiver
// loops log and drop such frames (spec.md §4.1).
func Decode(frame wire.Frame) (Operation, error) {
	switch frame.Tag {
	case wire.TagHeartbeat:
		return DecodeHeartbeat(frame.Payload)
	case wire.TagJoin:
		return DecodeJoin(frame.Payload)
	case wire.TagLeave:
		return DecodeLeave(frame.Payload)
	case wire.TagNewMember:
		return DecodeNewMember(frame.Payload)
	case wire.TagSnapshot:
		return DecodeSnapshot(frame.Payload)
	case wire.TagGet:
		return DecodeGet(frame.Payload)
	case wire.TagNewOwners:
		return DecodeNewOwners(frame.Payload)
	case wire.TagFile:
		return DecodeFile(frame.Payload)
	case wire.TagLostFiles:
		return DecodeLostFiles(frame.Payload)
	default:
		return nil, wire.ErrUnknownTag
	}
}
