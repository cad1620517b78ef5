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

package wire

import (
	"encoding/binary"
	"fmt"
)

// Encoder builds a payload as a flat byte sequence, field by field, in
// declaration order — the "field-by-field" codec spec.md §4.1 asks for.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the accumulated payload.
func (e *Encoder) Bytes() []byte { return e.buf }

// String appends a length-prefixed (uint32 LE) UTF-8 string.
func (e *Encoder) String(s string) *Encoder {
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(s)))
	e.buf = append(e.buf, lb[:]...)
	e.buf = append(e.buf, s...)
	return e
}

// Bool appends a single-byte boolean.
func (e *Encoder) Bool(b bool) *Encoder {
	if b {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
	return e
}

// RawBytes appends a length-prefixed (uint32 LE) raw byte sequence.
func (e *Encoder) RawBytes(b []byte) *Encoder {
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(b)))
	e.buf = append(e.buf, lb[:]...)
	e.buf = append(e.buf, b...)
	return e
}

// StringSet appends a count-prefixed (uint32 LE) set of strings.
func (e *Encoder) StringSet(set []string) *Encoder {
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(set)))
	e.buf = append(e.buf, lb[:]...)
	for _, s := range set {
		e.String(s)
	}
	return e
}

// StringMap appends a count-prefixed (uint32 LE) map<string,string>, in
// Go's map iteration order, so the byte layout of a multi-entry map is
// not deterministic across calls.
func (e *Encoder) StringMap(m map[string]string) *Encoder {
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(m)))
	e.buf = append(e.buf, lb[:]...)
	for k, v := range m {
		e.String(k)
		e.String(v)
	}
	return e
}

// Decoder reads fields back out of a payload in the same order they
// were written.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps payload for sequential field reads.
func NewDecoder(payload []byte) *Decoder { return &Decoder{buf: payload} }

func (d *Decoder) need(n int) error {
	if d.pos+n > len(d.buf) {
		return fmt.Errorf("wire: short payload: need %d bytes at offset %d, have %d", n, d.pos, len(d.buf))
	}
	return nil
}

// String reads a length-prefixed string.
func (d *Decoder) String() (string, error) {
	if err := d.need(4); err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint32(d.buf[d.pos : d.pos+4]))
	d.pos += 4
	if err := d.need(n); err != nil {
		return "", err
	}
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}

// Bool reads a single-byte boolean.
func (d *Decoder) Bool() (bool, error) {
	if err := d.need(1); err != nil {
		return false, err
	}
	b := d.buf[d.pos] != 0
	d.pos++
	return b, nil
}

// RawBytes reads a length-prefixed raw byte sequence.
func (d *Decoder) RawBytes() ([]byte, error) {
	if err := d.need(4); err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint32(d.buf[d.pos : d.pos+4]))
	d.pos += 4
	if err := d.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, d.buf[d.pos:d.pos+n])
	d.pos += n
	return out, nil
}

// StringSet reads a count-prefixed set of strings.
func (d *Decoder) StringSet() ([]string, error) {
	if err := d.need(4); err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint32(d.buf[d.pos : d.pos+4]))
	d.pos += 4
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := d.String()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// StringMap reads a count-prefixed map<string,string>.
func (d *Decoder) StringMap() (map[string]string, error) {
	if err := d.need(4); err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint32(d.buf[d.pos : d.pos+4]))
	d.pos += 4
	out := make(map[string]string, n)
	for i := 0; i < n; i++ {
		k, err := d.String()
		if err != nil {
			return nil, err
		}
		v, err := d.String()
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
