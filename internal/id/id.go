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

// Package id implements the node identifier scheme of spec.md §3:
// "ADDR|TS" strings, totally ordered lexicographically.
package id

import (
	"strconv"
	"strings"
	"time"

	"github.com/nabbar-ring/ringnode/internal/rerr"
)

// ID is a node identifier of the form "ADDR|TS" where ADDR is the
// node's UDP endpoint and TS is its Unix-second join timestamp.
type ID string

// New builds the ID a node allocates for itself when it joins: its own
// UDP address plus the current UNIX second.
func New(udpAddr string, joinedAt time.Time) ID {
	return ID(udpAddr + "|" + strconv.FormatInt(joinedAt.Unix(), 10))
}

// Addr returns the ADDR component of the identifier.
func (i ID) Addr() string {
	a, _, _ := i.split()
	return a
}

// Timestamp returns the TS component of the identifier, as a UNIX
// second count.
func (i ID) Timestamp() (int64, error) {
	_, ts, ok := i.split()
	if !ok {
		return 0, rerr.ArgumentError.Errorf("malformed id: %q", string(i))
	}
	return ts, nil
}

func (i ID) split() (addr string, ts int64, ok bool) {
	s := string(i)
	idx := strings.LastIndexByte(s, '|')
	if idx < 0 {
		return s, 0, false
	}
	addr = s[:idx]
	v, err := strconv.ParseInt(s[idx+1:], 10, 64)
	if err != nil {
		return addr, 0, false
	}
	return addr, v, true
}

// Less implements the total lexicographic order IDs are sorted under.
func (i ID) Less(o ID) bool { return string(i) < string(o) }

// Sorted reports whether ids is sorted and free of duplicates, the
// membership-list invariant of spec.md §3.
func Sorted(ids []ID) bool {
	for i := 1; i < len(ids); i++ {
		if !(ids[i-1] < ids[i]) {
			return false
		}
	}
	return true
}

// InsertSorted inserts id into the sorted, deduplicated slice ids,
// returning the new slice and whether an insertion actually happened
// (false if id was already present — insertion is a no-op per
// spec.md §4.3).
func InsertSorted(ids []ID, newID ID) ([]ID, bool) {
	lo, hi := 0, len(ids)
	for lo < hi {
		mid := (lo + hi) / 2
		if ids[mid] < newID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(ids) && ids[lo] == newID {
		return ids, false
	}
	out := make([]ID, len(ids)+1)
	copy(out, ids[:lo])
	out[lo] = newID
	copy(out[lo+1:], ids[lo:])
	return out, true
}

// RemoveSorted removes id from the sorted slice ids by linear position,
// returning the new slice and whether a removal actually occurred.
func RemoveSorted(ids []ID, target ID) ([]ID, bool) {
	for i, v := range ids {
		if v == target {
			out := make([]ID, 0, len(ids)-1)
			out = append(out, ids[:i]...)
			out = append(out, ids[i+1:]...)
			return out, true
		}
	}
	return ids, false
}

// IndexOf returns the position of id in the sorted slice, or -1.
func IndexOf(ids []ID, target ID) int {
	for i, v := range ids {
		if v == target {
			return i
		}
	}
	return -1
}
