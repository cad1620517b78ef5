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

// Get is the GET file-request operation of spec.md §4.1:
// {distributed_filename, local_path}.
type Get struct {
	DistributedFilename string
	LocalPath           string
}

func DecodeGet(payload []byte) (*Get, error) {
	d := wire.NewDecoder(payload)
	f, err := d.String()
	if err != nil {
		return nil, err
	}
	lp, err := d.String()
	if err != nil {
		return nil, err
	}
	return &Get{DistributedFilename: f, LocalPath: lp}, nil
}

func (g *Get) Tag() wire.Tag { return wire.TagGet }

func (g *Get) ToBytes() []byte {
	payload := wire.NewEncoder().String(g.DistributedFilename).String(g.LocalPath).Bytes()
	return wire.Encode(wire.TagGet, payload)
}

func (g *Get) String() string {
	return fmt.Sprintf("GET{%s -> %s}", g.DistributedFilename, g.LocalPath)
}

// Execute reads this node's local stored copy of the requested file and
// replies on the same TCP stream with a FILE operation carrying the
// requester's local_path as filename (spec.md §4.5's "Receiving GET").
func (g *Get) Execute(rt *Runtime) ([]Dispatch, error) {
	path := filepath.Join(rt.DataDir, g.DistributedFilename)
	data, err := rt.ReadFile(path)
	if err != nil {
		return nil, err
	}

	reply := &File{Filename: g.LocalPath, Data: data, IsDistributed: false}

	if rt.ReplyStream == nil {
		return nil, fmt.Errorf("ops: GET executed without a reply stream")
	}
	return []Dispatch{{Kind: DestTCPStream, Stream: rt.ReplyStream, Op: reply}}, nil
}
