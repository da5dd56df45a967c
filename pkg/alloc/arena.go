/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package alloc

import (
	"errors"
	"fmt"
	"sort"
	"time"
	"unsafe"

	queuepkg "github.com/Workiva/go-datastructures/queue"

	"github.com/srediag/safemem/internal/logging"
	"github.com/srediag/safemem/internal/pin"
)

// SizePercentPair describes one slab of the arena layout: slot payload size
// and the percentage of the arena capacity dedicated to slots of that size.
type SizePercentPair struct {
	Size    uint32
	Percent uint32
}

type sizePercentPairs []SizePercentPair

func (s sizePercentPairs) Len() int           { return len(s) }
func (s sizePercentPairs) Less(i, j int) bool { return s[i].Size < s[j].Size }
func (s sizePercentPairs) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// how long a free-slot poll waits before reporting exhaustion
const freePollTimeout = 50 * time.Microsecond

// slab is one size class of the arena. Free slot offsets live in a ring
// buffer so concurrent alloc/release never needs a lock of its own.
type slab struct {
	slotSize uint32
	start    uint32
	end      uint32
	count    uint32
	free     *queuepkg.RingBuffer
}

// arena is a single reservation of pinned memory carved into slabs.
type arena struct {
	mem    []byte
	slabs  []*slab
	pinned bool
}

func align8(n uint32) uint32 {
	return (n + 7) &^ 7
}

func newArena(capacity int, layout []SizePercentPair, log *logging.Logger) (*arena, error) {
	if capacity <= 0 || len(layout) == 0 {
		return nil, ErrInvalidConfig
	}
	total := uint32(0)
	for _, p := range layout {
		if p.Size == 0 || p.Percent == 0 {
			return nil, ErrInvalidConfig
		}
		total += p.Percent
	}
	if total != 100 {
		return nil, fmt.Errorf("%w: slab percents total %d, want 100", ErrInvalidConfig, total)
	}

	pairs := make(sizePercentPairs, len(layout))
	copy(pairs, layout)
	sort.Sort(pairs)

	a := &arena{mem: make([]byte, capacity)}
	off := uint32(0)
	for _, p := range pairs {
		slotSize := align8(p.Size)
		budget := uint32(uint64(capacity) * uint64(p.Percent) / 100)
		count := budget / slotSize
		if count == 0 {
			return nil, fmt.Errorf("%w: slab size %d does not fit its %d%% share", ErrInvalidConfig, p.Size, p.Percent)
		}
		s := &slab{
			slotSize: slotSize,
			start:    off,
			count:    count,
			free:     queuepkg.NewRingBuffer(uint64(count)),
		}
		for i := uint32(0); i < count; i++ {
			if err := s.free.Put(off); err != nil {
				return nil, fmt.Errorf("alloc: seeding free list: %w", err)
			}
			off += slotSize
		}
		s.end = off
		a.slabs = append(a.slabs, s)
	}

	if err := pin.Pin(a.mem); err != nil {
		// Typically RLIMIT_MEMLOCK. The arena still works, just without the
		// residency guarantee.
		log.Warnf("arena: pinning %d bytes failed, running unpinned: %v", capacity, err)
	} else {
		a.pinned = true
	}
	log.Infof("arena: reserved %d bytes in %d slabs, pinned=%v", capacity, len(a.slabs), a.pinned)
	return a, nil
}

// alloc hands out the smallest free slot that fits size, escalating to larger
// slabs when a size class is exhausted. The returned region is zeroed and its
// capacity is clamped to the slot, so callers can never write into a
// neighboring slot.
func (a *arena) alloc(size int) ([]byte, error) {
	fit := false
	for _, s := range a.slabs {
		if uint32(size) > s.slotSize {
			continue
		}
		fit = true
		item, err := s.free.Poll(freePollTimeout)
		if err != nil {
			if errors.Is(err, queuepkg.ErrTimeout) {
				continue // size class exhausted, try a larger one
			}
			return nil, ErrPoolClosed
		}
		off := item.(uint32)
		clear(a.mem[off : off+s.slotSize])
		return a.mem[off : off+uint32(size) : off+s.slotSize], nil
	}
	if !fit {
		return nil, ErrRegionTooLarge
	}
	return nil, ErrArenaExhausted
}

// contains reports whether region points into the arena reservation.
func (a *arena) contains(region []byte) bool {
	if len(a.mem) == 0 || len(region) == 0 {
		return false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.mem)))
	p := uintptr(unsafe.Pointer(unsafe.SliceData(region)))
	return p >= base && p < base+uintptr(len(a.mem))
}

// release returns a region's slot to its slab free list. The region must
// start exactly on a slot boundary; anything else is a release of memory this
// arena never handed out.
func (a *arena) release(region []byte) (slotSize uint32) {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.mem)))
	off := uint32(uintptr(unsafe.Pointer(unsafe.SliceData(region))) - base)
	for _, s := range a.slabs {
		if off < s.start || off >= s.end {
			continue
		}
		if (off-s.start)%s.slotSize != 0 {
			panic(fmt.Sprintf("alloc: release of interior pointer at arena offset %d", off))
		}
		if ok, err := s.free.Offer(off); err != nil || !ok {
			panic(fmt.Sprintf("alloc: double release of arena offset %d", off))
		}
		return s.slotSize
	}
	panic(fmt.Sprintf("alloc: release of unknown arena offset %d", off))
}

func (a *arena) close(log *logging.Logger) {
	for _, s := range a.slabs {
		s.free.Dispose()
	}
	if a.pinned {
		if err := pin.Unpin(a.mem); err != nil {
			log.Warnf("arena: unpin failed: %v", err)
		}
		a.pinned = false
	}
	a.mem = nil
	a.slabs = nil
}

// freeSlots counts the free slots across all slabs, for stats and health.
func (a *arena) freeSlots() uint64 {
	var n uint64
	for _, s := range a.slabs {
		n += s.free.Len()
	}
	return n
}

// totalSlots counts every slot the arena was laid out with.
func (a *arena) totalSlots() uint64 {
	var n uint64
	for _, s := range a.slabs {
		n += uint64(s.count)
	}
	return n
}
