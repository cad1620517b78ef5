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

// Package kernel holds the process-wide state of a ringnode: the
// membership list, its derived successor/predecessor views, predecessor
// heartbeat timestamps, the UDP→TCP address map, and the file ownership
// map (spec.md §3). It is constructed once at startup and threaded
// through every component, guarded by a single sync.RWMutex — no
// package-level globals, matching the teacher's "init once, read-many,
// write under lock" discipline (see DESIGN.md).
package kernel

import (
	"sort"
	"time"

	"github.com/nabbar-ring/ringnode/internal/id"
	"github.com/nabbar-ring/ringnode/internal/rerr"
	"github.com/nabbar-ring/ringnode/internal/ring"

	"sync"
)

// Config carries the tunable constants of spec.md §6 that the kernel
// needs to derive neighbor lists and owner sets.
type Config struct {
	KSucc      int
	NumOwners  int
}

// State is the shared, lock-protected kernel of a single node.
type State struct {
	mu sync.RWMutex

	cfg Config

	self    id.ID
	selfTCP string
	joined  bool

	members []id.ID
	succ    []id.ID
	pred    []id.ID

	predTimestamps map[id.ID]int64
	udpToTCP       map[string]string

	// fileOwners maps a distributed filename to its authoritative
	// owner set, as a set keyed by ID for O(1) membership tests.
	fileOwners map[string]map[id.ID]struct{}
}

// New builds an empty, not-yet-joined kernel state.
func New(cfg Config) *State {
	return &State{
		cfg:            cfg,
		predTimestamps: make(map[id.ID]int64),
		udpToTCP:       make(map[string]string),
		fileOwners:     make(map[string]map[id.ID]struct{}),
	}
}

// Join marks self as joined: it allocates self's ID, inserts self into
// the membership list, and records self's UDP→TCP mapping. It is the
// caller's responsibility to refuse a second Join (spec.md §4.3:
// "repeated joins while already joined are refused").
func (s *State) Join(self id.ID, selfTCP string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.self = self
	s.selfTCP = selfTCP
	s.joined = true
	s.members, _ = id.InsertSorted(s.members, self)
	s.udpToTCP[self.Addr()] = selfTCP
	s.recomputeNeighborsLocked()
}

// Leave clears all local membership state (spec.md §4.3: "leave...
// clears the joined flag and empties membership/successor/predecessor
// state locally").
func (s *State) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.joined = false
	s.members = nil
	s.succ = nil
	s.pred = nil
	s.predTimestamps = make(map[id.ID]int64)
	s.udpToTCP = make(map[string]string)
}

// IsJoined reports whether this node currently considers itself a
// member of the ring.
func (s *State) IsJoined() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joined
}

// Self returns this node's own identifier.
func (s *State) Self() id.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.self
}

// SelfTCP returns this node's TCP endpoint.
func (s *State) SelfTCP() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selfTCP
}

// Members returns a copy of the current sorted membership list.
func (s *State) Members() []id.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.ID, len(s.members))
	copy(out, s.members)
	return out
}

// Successors returns a copy of the current successor list.
func (s *State) Successors() []id.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.ID, len(s.succ))
	copy(out, s.succ)
	return out
}

// Predecessors returns a copy of the current predecessor list.
func (s *State) Predecessors() []id.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.ID, len(s.pred))
	copy(out, s.pred)
	return out
}

// UDPToTCP returns the TCP endpoint registered for a given UDP
// endpoint, if any.
func (s *State) UDPToTCP(udpAddr string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.udpToTCP[udpAddr]
	return v, ok
}

// UDPToTCPSnapshot returns a copy of the full UDP→TCP map, for MLIS
// snapshots.
func (s *State) UDPToTCPSnapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.udpToTCP))
	for k, v := range s.udpToTCP {
		out[k] = v
	}
	return out
}

// InsertMember inserts newID into the membership list and records its
// TCP endpoint, then recomputes neighbor views. Returns whether the
// insertion actually changed membership (false if newID was already
// present — insertion is a no-op per spec.md §4.3).
func (s *State) InsertMember(newID id.ID, tcpAddr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, inserted := id.InsertSorted(s.members, newID)
	if !inserted {
		return false
	}
	s.members = members
	s.udpToTCP[newID.Addr()] = tcpAddr
	s.recomputeNeighborsLocked()
	return true
}

// RemoveMember removes target from the membership list, drops its
// UDP→TCP entry and predecessor timestamp (if any), and recomputes
// neighbor views. Returns whether a removal actually occurred.
func (s *State) RemoveMember(target id.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeMemberLocked(target)
}

func (s *State) removeMemberLocked(target id.ID) bool {
	members, removed := id.RemoveSorted(s.members, target)
	if !removed {
		return false
	}
	s.members = members
	delete(s.udpToTCP, target.Addr())
	delete(s.predTimestamps, target)
	s.recomputeNeighborsLocked()
	return true
}

// MergeSnapshot set-unions a received MLIS membership list and
// UDP→TCP map into local state, then recomputes neighbors.
func (s *State) MergeSnapshot(members []id.ID, udpToTCP map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, m := range members {
		if ms, ok := id.InsertSorted(s.members, m); ok {
			s.members = ms
			changed = true
		}
	}
	for k, v := range udpToTCP {
		if _, ok := s.udpToTCP[k]; !ok {
			s.udpToTCP[k] = v
		}
	}
	if changed {
		s.recomputeNeighborsLocked()
	}
}

// recomputeNeighborsLocked derives succ/pred from members and self's
// position, per spec.md §4.2. Must be called with mu held for write.
func (s *State) recomputeNeighborsLocked() {
	idx := id.IndexOf(s.members, s.self)
	if idx < 0 {
		s.succ = nil
		s.pred = nil
		return
	}

	succ, err := ring.Neighbors(s.members, idx, 1, s.cfg.KSucc)
	if err != nil {
		s.succ = nil
	} else {
		s.succ = succ
	}

	pred, err := ring.Neighbors(s.members, idx, -1, s.cfg.KSucc)
	if err != nil {
		s.pred = nil
	} else {
		s.pred = pred
	}

	// Drop timestamps for IDs that are no longer predecessors. No entry
	// is added here for a new predecessor: it first appears in
	// predTimestamps on its first accepted heartbeat (TouchHeartbeat),
	// so the map's keys are a subset of the predecessor list.
	keep := make(map[id.ID]struct{}, len(s.pred))
	for _, p := range s.pred {
		keep[p] = struct{}{}
	}
	for k := range s.predTimestamps {
		if _, ok := keep[k]; !ok {
			delete(s.predTimestamps, k)
		}
	}
}

// TouchHeartbeat records a heartbeat from from at time now, if from is
// currently a predecessor (spec.md §4.3: "if id is in the
// predecessor-timestamp map, its entry is updated... otherwise the
// heartbeat is discarded silently"). It rejects timestamps from the
// future as a protocol-integrity error.
func (s *State) TouchHeartbeat(from id.ID, now time.Time) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	isPred := false
	for _, p := range s.pred {
		if p == from {
			isPred = true
			break
		}
	}
	if !isPred {
		return false, nil
	}

	ts := now.Unix()
	if prev, ok := s.predTimestamps[from]; ok && prev > ts {
		return false, rerr.ProtocolIntegrity.Errorf("heartbeat timestamp from %s moved backward", from)
	}
	s.predTimestamps[from] = ts
	return true, nil
}

// ExpiredPredecessors returns the subset of the current predecessor
// list whose last heartbeat is older than expiration, as observed at
// now (spec.md §4.3 failure detection). A predecessor with no recorded
// heartbeat is never reported.
func (s *State) ExpiredPredecessors(now time.Time, expiration time.Duration) []id.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []id.ID
	for _, p := range s.pred {
		last, ok := s.predTimestamps[p]
		if !ok {
			continue
		}
		if now.Unix()-last > int64(expiration.Seconds()) {
			out = append(out, p)
		}
	}
	return out
}

// IsMaster reports whether self is the deterministically-chosen master
// of the current live membership: the lexicographically smallest live
// ID (see DESIGN.md's resolution of the "master selection" Open
// Question).
func (s *State) IsMaster() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.members) == 0 {
		return false
	}
	smallest := s.members[0]
	for _, m := range s.members[1:] {
		if m.Less(smallest) {
			smallest = m
		}
	}
	return smallest == s.self
}

// Owners returns a copy of the current authoritative owner set for
// file, sorted for determinism.
func (s *State) Owners(file string) []id.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.fileOwners[file]
	if !ok {
		return nil
	}
	out := make([]id.ID, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// AllFiles returns every distributed filename this node holds an
// owner-set entry for, sorted for determinism.
func (s *State) AllFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.fileOwners))
	for f := range s.fileOwners {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// UnionOwners unions newOwners into file's owner set and returns the
// IDs that were actually added — the gossip quiescence signal of
// spec.md §4.5 ("added = new_owners − existing_owners[f]. If empty,
// terminate").
func (s *State) UnionOwners(file string, newOwners []id.ID) []id.ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.fileOwners[file]
	if !ok {
		set = make(map[id.ID]struct{})
		s.fileOwners[file] = set
	}

	var added []id.ID
	for _, o := range newOwners {
		if _, exists := set[o]; !exists {
			set[o] = struct{}{}
			added = append(added, o)
		}
	}
	return added
}

// RemoveOwner removes failedOwner from file's owner set, reporting
// whether a removal actually occurred (spec.md §4.5 LOST handling).
func (s *State) RemoveOwner(file string, failedOwner id.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.fileOwners[file]
	if !ok {
		return false
	}
	if _, exists := set[failedOwner]; !exists {
		return false
	}
	delete(set, failedOwner)
	return true
}

// FilesOwnedBy returns the distributed filenames whose owner set
// currently contains target — used by the master to compute
// lost_files on a failure (spec.md §4.6).
func (s *State) FilesOwnedBy(target id.ID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for f, set := range s.fileOwners {
		if _, ok := set[target]; ok {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// Config returns the tunable constants this kernel was built with.
func (s *State) Config() Config { return s.cfg }
