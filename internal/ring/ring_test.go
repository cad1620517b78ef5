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

package ring_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar-ring/ringnode/internal/ring"
)

var _ = Describe("Neighbors", func() {
	It("fails on an empty membership", func() {
		_, err := ring.Neighbors([]string{}, 0, 1, 2)
		Expect(err).To(MatchError(ring.ErrEmptyMembership))
	})

	It("returns the successor list in ring order", func() {
		members := []string{"A", "B", "C", "D"}
		succ, err := ring.Neighbors(members, 0, 1, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(succ).To(Equal([]string{"B", "C"}))
	})

	It("returns the predecessor list in ring order", func() {
		members := []string{"A", "B", "C", "D"}
		pred, err := ring.Neighbors(members, 0, -1, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(pred).To(Equal([]string{"D", "C"}))
	})

	It("never includes self and stops at the wrap", func() {
		members := []string{"A", "B"}
		succ, err := ring.Neighbors(members, 0, 1, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(succ).To(Equal([]string{"B"}))
	})

	It("returns empty neighbor list for a single-member ring", func() {
		members := []string{"A"}
		succ, err := ring.Neighbors(members, 0, 1, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(succ).To(BeEmpty())
	})
})

var _ = Describe("AnchoredOwners", func() {
	It("fails on an empty membership", func() {
		_, err := ring.AnchoredOwners([]string{}, 0, 2)
		Expect(err).To(MatchError(ring.ErrEmptyMembership))
	})

	It("includes the anchor and walks forward", func() {
		members := []string{"A", "B", "C"}
		owners, err := ring.AnchoredOwners(members, 1, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(owners).To(Equal([]string{"B", "C"}))
	})

	It("is {self} only when n=1", func() {
		members := []string{"A"}
		owners, err := ring.AnchoredOwners(members, 0, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(owners).To(Equal([]string{"A"}))
	})
})

var _ = Describe("Index", func() {
	It("wraps additions modulo the ring size", func() {
		idx := ring.NewIndex(3, 4)
		Expect(idx.Add(2).Pos()).To(Equal(1))
		Expect(idx.Add(-1).Pos()).To(Equal(2))
	})

	It("is invalid for a zero-size ring", func() {
		idx := ring.NewIndex(0, 0)
		Expect(idx.Valid()).To(BeFalse())
	})
})

var _ = Describe("HashFilename", func() {
	It("is deterministic across calls", func() {
		Expect(ring.HashFilename("f1")).To(Equal(ring.HashFilename("f1")))
	})

	It("anchors within bounds", func() {
		idx := ring.AnchorIndex("f1", 3)
		Expect(idx).To(BeNumerically(">=", 0))
		Expect(idx).To(BeNumerically("<", 3))
	})
})
