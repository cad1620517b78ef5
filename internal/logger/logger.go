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

// Package logger builds the root hclog.Logger for a node and hands out
// one named sub-logger per component, so log lines are always tagged
// with their origin (spec.md §6's append-only operation log, SPEC_FULL.md
// §2's ambient logging section).
package logger

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Component names used consistently across the node for sub-logger
// naming; also the names that appear in every log line's "logger"
// field.
const (
	Receiver   = "receiver"
	Sender     = "sender"
	Maintainer = "maintainer"
	FileServer = "fileserver"
	Console    = "console"
	Placement  = "placement"
	Membership = "membership"
)

// Options controls the root logger's sink and format.
type Options struct {
	// JSON selects hclog's structured JSON sink; the default is the
	// human-readable console format.
	JSON bool
	// Output is where log lines are written; defaults to os.Stderr.
	Output io.Writer
	// Level is the minimum level emitted; defaults to hclog.Info.
	Level hclog.Level
	// Name is the root logger's name; cmd/ringnode passes the NODE
	// command-line argument.
	Name string
}

// New builds the root logger. Named(...) on the result produces the
// per-component sub-loggers listed above.
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := opts.Level
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      level,
		Output:     out,
		JSONFormat: opts.JSON,
	})
}

// Named returns a child of root scoped to one of the component name
// constants above.
func Named(root hclog.Logger, component string) hclog.Logger {
	return root.Named(component)
}
