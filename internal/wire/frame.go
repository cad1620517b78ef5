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

// Package wire implements the self-delimiting frame of spec.md §4.1:
//
//	+------------------+--------------------------+---------+
//	| op-tag (4 bytes) | total-length (4 bytes LE) | payload |
//	+------------------+--------------------------+---------+
//
// total-length includes the 8-byte header. Field order and presence
// inside each payload follow the schemas tabulated in spec.md §4.1;
// the codec itself (internal/wire/codec.go) is a small hand-rolled
// binary encoder, not a general-purpose serialization library — see
// DESIGN.md for why.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/nabbar-ring/ringnode/internal/rerr"
)

const headerSize = 8

// Tag is a 4-byte ASCII operation tag.
type Tag [4]byte

// The recognized op-tags of spec.md §4.1.
var (
	TagHeartbeat    = Tag{'H', 'B', ' ', ' '}
	TagJoin         = Tag{'J', 'O', 'I', 'N'}
	TagLeave        = Tag{'L', 'E', 'A', 'V'}
	TagNewMember    = Tag{'N', 'M', 'E', 'M'}
	TagSnapshot     = Tag{'M', 'L', 'I', 'S'}
	TagGet          = Tag{'G', 'E', 'T', ' '}
	TagNewOwners    = Tag{'N', 'F', 'O', ' '}
	TagFile         = Tag{'F', 'I', 'L', 'E'}
	TagLostFiles    = Tag{'L', 'O', 'S', 'T'}
)

func (t Tag) String() string { return string(t[:]) }

// Frame is a decoded wire frame: its tag and the raw payload bytes.
type Frame struct {
	Tag     Tag
	Payload []byte
}

// ErrUnknownTag is returned by Decode when a frame carries a tag not in
// the set above; spec.md §4.1 requires the frame to be dropped and
// logged, never to abort the reading loop.
var ErrUnknownTag = rerr.ProtocolIntegrity.Error()

// Encode serializes tag and payload into a full wire frame.
func Encode(tag Tag, payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	copy(buf[0:4], tag[:])
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize+len(payload)))
	copy(buf[headerSize:], payload)
	return buf
}

// DecodeHeader reads the 8-byte header from r and returns the tag and
// the expected total frame length.
func DecodeHeader(r io.Reader) (Tag, uint32, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Tag{}, 0, err
	}
	var tag Tag
	copy(tag[:], hdr[0:4])
	total := binary.LittleEndian.Uint32(hdr[4:8])
	return tag, total, nil
}

// ReadFrame reads one full frame (header + payload) from r.
func ReadFrame(r io.Reader) (Frame, error) {
	tag, total, err := DecodeHeader(r)
	if err != nil {
		return Frame{}, err
	}
	if total < headerSize {
		return Frame{}, rerr.ProtocolIntegrity.Errorf("frame length %d shorter than header", total)
	}
	payload := make([]byte, total-headerSize)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Tag: tag, Payload: payload}, nil
}

// WriteFrame encodes and writes tag/payload as a single frame to w.
func WriteFrame(w io.Writer, tag Tag, payload []byte) error {
	_, err := w.Write(Encode(tag, payload))
	return err
}

// KnownTag reports whether tag is one of the recognized op-tags.
func KnownTag(tag Tag) bool {
	switch tag {
	case TagHeartbeat, TagJoin, TagLeave, TagNewMember, TagSnapshot,
		TagGet, TagNewOwners, TagFile, TagLostFiles:
		return true
	default:
		return false
	}
}
