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

package rerr

import (
	"fmt"
	"runtime"
	"strings"
)

// Error extends the standard error with a code, a parent chain, and the
// call site that raised it. It stays compatible with errors.Is/errors.As
// through Unwrap.
type Error interface {
	error

	// Code returns this error's classification bucket.
	Code() CodeError
	// Is reports whether the error (or any parent) carries the given
	// code.
	Is(code CodeError) bool
	// Parents returns the direct parent causes, in the order they were
	// added.
	Parents() []error
	// AddParent appends non-nil causes to the parent chain.
	AddParent(parents ...error)
	// Unwrap exposes the first parent for errors.Is/As compatibility.
	Unwrap() error
	// Site returns "file:line" of the call that raised this error.
	Site() string
}

type rErr struct {
	code    CodeError
	message string
	parents []error
	file    string
	line    int
}

func caller(skip int) (file string, line int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", 0
	}
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		file = file[i+1:]
	}
	return file, line
}

func newError(code CodeError, message string, parents ...error) Error {
	f, l := caller(3)
	e := &rErr{code: code, message: message, file: f, line: l}
	e.AddParent(parents...)
	return e
}

func newErrorf(code CodeError, format string, args ...interface{}) Error {
	f, l := caller(3)
	return &rErr{code: code, message: fmt.Sprintf(format, args...), file: f, line: l}
}

// New raises a fresh Unknown-code error with a formatted message, for
// call sites that don't warrant a dedicated CodeError.
func New(format string, args ...interface{}) Error {
	f, l := caller(2)
	return &rErr{code: Unknown, message: fmt.Sprintf(format, args...), file: f, line: l}
}

func (e *rErr) Error() string {
	var b strings.Builder
	b.WriteString(e.message)
	for _, p := range e.parents {
		if p == nil {
			continue
		}
		b.WriteString(": ")
		b.WriteString(p.Error())
	}
	return b.String()
}

func (e *rErr) Code() CodeError { return e.code }

func (e *rErr) Is(code CodeError) bool {
	if e.code == code {
		return true
	}
	for _, p := range e.parents {
		if re, ok := p.(Error); ok && re.Is(code) {
			return true
		}
	}
	return false
}

func (e *rErr) Parents() []error { return e.parents }

func (e *rErr) AddParent(parents ...error) {
	for _, p := range parents {
		if p != nil {
			e.parents = append(e.parents, p)
		}
	}
}

func (e *rErr) Unwrap() error {
	if len(e.parents) == 0 {
		return nil
	}
	return e.parents[0]
}

func (e *rErr) Site() string {
	return fmt.Sprintf("%s:%d", e.file, e.line)
}
