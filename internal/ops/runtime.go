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
	"net"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nabbar-ring/ringnode/internal/kernel"
)

// Runtime bundles everything an Operation's Execute needs beyond the
// shared kernel state: the observed source of the frame, file I/O
// hooks scoped to DATA_DIR, the clock, a logger, and the one hook that
// breaks the "execute only returns dispatches" discipline on purpose —
// Puller, used by NFO's from-failure pull (spec.md §4.5).
type Runtime struct {
	State *kernel.State

	// Source is the address the frame was observed arriving from: a
	// "ip:port" UDP source, or a TCP remote address.
	Source string

	// DataDir is the root of locally stored distributed file content.
	DataDir string

	Now func() time.Time

	Log hclog.Logger

	// ReplyStream is the already-open TCP connection a frame arrived
	// on, set by the FileServer's per-connection handler so a GET's
	// FILE reply can use the "already-open TCP streams" destination
	// kind of spec.md §4.4.
	ReplyStream net.Conn

	// ReadFile loads a file's content for a GET reply.
	ReadFile func(path string) ([]byte, error)
	// WriteFile persists a FILE operation's payload.
	WriteFile func(path string, data []byte) error

	// Puller performs a synchronous get() of file into DataDir,
	// exactly as if the console had issued `get file DATA_DIR/file`.
	// Injected by the placement package to avoid an import cycle
	// between ops and placement.
	Puller func(file string) error
}

func (rt *Runtime) now() time.Time {
	if rt.Now != nil {
		return rt.Now()
	}
	return time.Now()
}

func (rt *Runtime) log() hclog.Logger {
	if rt.Log != nil {
		return rt.Log
	}
	return hclog.NewNullLogger()
}
