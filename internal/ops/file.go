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
	"path/filepath"

	"github.com/nabbar-ring/ringnode/internal/wire"
)

// File is the FILE transfer operation of spec.md §4.1:
// {filename, data, is_distributed}.
type File struct {
	Filename      string
	Data          []byte
	IsDistributed bool
}

func DecodeFile(payload []byte) (*File, error) {
	d := wire.NewDecoder(payload)
	fn, err := d.String()
	if err != nil {
		return nil, err
	}
	data, err := d.RawBytes()
	if err != nil {
		return nil, err
	}
	dist, err := d.Bool()
	if err != nil {
		return nil, err
	}
	return &File{Filename: fn, Data: data, IsDistributed: dist}, nil
}

func (f *File) Tag() wire.Tag { return wire.TagFile }

func (f *File) ToBytes() []byte {
	payload := wire.NewEncoder().String(f.Filename).RawBytes(f.Data).Bool(f.IsDistributed).Bytes()
	return wire.Encode(wire.TagFile, payload)
}

func (f *File) String() string {
	return fmt.Sprintf("FILE{%s, %d bytes, distributed=%v}", f.Filename, len(f.Data), f.IsDistributed)
}

// Execute writes Data to DATA_DIR/Filename when IsDistributed, or to
// the literal Filename path otherwise; overwrite is permitted
// (spec.md §4.5's "Receiving FILE").
func (f *File) Execute(rt *Runtime) ([]Dispatch, error) {
	path := f.Filename
	if f.IsDistributed {
		path = filepath.Join(rt.DataDir, f.Filename)
	}
	if err := rt.WriteFile(path, f.Data); err != nil {
		return nil, err
	}
	return nil, nil
}
