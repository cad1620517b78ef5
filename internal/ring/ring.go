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

// Package ring implements the modular-integer ring arithmetic backing
// successor/predecessor/owner-set computation over the sorted membership
// list (spec.md §4.2).
package ring

import "github.com/nabbar-ring/ringnode/internal/rerr"

// ErrEmptyMembership is returned by any neighbor computation run against
// an empty membership list.
var ErrEmptyMembership = rerr.New("membership empty")

// Index is a position on a ring of a given size, wrapping under
// addition by a signed step.
type Index struct {
	pos  int
	size int
}

// NewIndex builds a ring Index for position pos on a ring of the given
// size. size must be strictly positive; pos is taken modulo size.
func NewIndex(pos, size int) Index {
	if size <= 0 {
		return Index{pos: 0, size: 0}
	}
	return Index{pos: mod(pos, size), size: size}
}

// Valid reports whether the Index belongs to a non-empty ring.
func (i Index) Valid() bool { return i.size > 0 }

// Pos returns the zero-based position on the ring.
func (i Index) Pos() int { return i.pos }

// Size returns the ring's size.
func (i Index) Size() int { return i.size }

// Add returns the Index reached by moving step positions around the
// ring (step may be negative).
func (i Index) Add(step int) Index {
	if i.size == 0 {
		return i
	}
	return Index{pos: mod(i.pos+step, i.size), size: i.size}
}

// Equal reports whether two indices denote the same ring position and
// size.
func (i Index) Equal(o Index) bool { return i.pos == o.pos && i.size == o.size }

func mod(n, m int) int {
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}

// Neighbors returns up to k distinct members found by walking the ring
// from anchor in the given step direction (+1 or -1), stopping before
// the walk returns to anchor. The anchor itself is never included.
//
// members must be the sorted, deduplicated membership list; anchor is
// an index into it.
func Neighbors[T any](members []T, anchor int, step int, k int) ([]T, error) {
	n := len(members)
	if n == 0 {
		return nil, ErrEmptyMembership
	}

	idx := NewIndex(anchor, n)
	out := make([]T, 0, k)

	cur := idx
	for len(out) < k {
		cur = cur.Add(step)
		if cur.Equal(idx) {
			break
		}
		out = append(out, members[cur.Pos()])
	}
	return out, nil
}

// AnchoredOwners returns the NUM_OWNERS-sized neighbor list anchored at
// anchor, stepping forward, *including* the anchor itself — the owner
// set construction of spec.md §4.2 ("...using step +1 and including the
// anchor itself").
func AnchoredOwners[T any](members []T, anchor int, numOwners int) ([]T, error) {
	n := len(members)
	if n == 0 {
		return nil, ErrEmptyMembership
	}

	idx := NewIndex(anchor, n)
	out := make([]T, 0, numOwners)
	out = append(out, members[idx.Pos()])

	cur := idx
	for len(out) < numOwners {
		cur = cur.Add(1)
		if cur.Equal(idx) {
			break
		}
		out = append(out, members[cur.Pos()])
	}
	return out, nil
}
