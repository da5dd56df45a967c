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
	"context"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/cenkalti/backoff/v4"
	cmap "github.com/orcaman/concurrent-map/v2"
	hostmem "github.com/shirou/gopsutil/v3/mem"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/safemem/internal/logging"
	"github.com/srediag/safemem/internal/track"
)

// Class selects the memory residency backing an allocation.
type Class uint8

const (
	// NonPaged regions come from the pinned arena and are never swapped out.
	NonPaged Class = iota
	// Paged regions are ordinary pageable storage.
	Paged
)

func (c Class) String() string {
	switch c {
	case NonPaged:
		return "nonpaged"
	case Paged:
		return "paged"
	}
	return "unknown"
}

// Config holds pool creation parameters.
type Config struct {
	// ArenaCapacity is the total byte size reserved (and pinned) for the
	// NonPaged class. Zero builds a pool without an arena; NonPaged
	// allocations then fail with ErrNoArena.
	ArenaCapacity int
	// Slabs is the arena slot layout. Percents must total 100.
	Slabs []SizePercentPair
	// Meter, when set, records allocation/release counters.
	Meter metric.Meter
	// Tracer, when set, spans the arena reservation.
	Tracer trace.Tracer
}

// Stats is a point-in-time snapshot of pool accounting.
type Stats struct {
	Allocations   uint64
	Releases      uint64
	LiveRegions   int64
	BytesInUse    int64
	ArenaCapacity int
	ArenaSlots    uint64
	ArenaFree     uint64
	ArenaPinned   bool
}

type pagedRegion struct {
	buf  *bytebufferpool.ByteBuffer
	size int
}

// Pool hands out zero-initialized storage regions and takes them back.
// All methods are safe for concurrent use.
type Pool struct {
	arena *arena
	paged cmap.ConcurrentMap[string, *pagedRegion]
	log   *logging.Logger

	closed      atomic.Bool
	allocations atomic.Uint64
	releases    atomic.Uint64
	live        atomic.Int64
	inUse       atomic.Int64

	allocCounter   metric.Int64Counter
	releaseCounter metric.Int64Counter
}

// New builds a pool. When cfg.ArenaCapacity is non-zero the arena is reserved
// up front, after checking the host actually has that much memory available.
func New(cfg Config) (*Pool, error) {
	p := &Pool{
		paged: cmap.New[*pagedRegion](),
		log:   logging.Default(),
	}

	if cfg.Meter != nil {
		var err error
		if p.allocCounter, err = cfg.Meter.Int64Counter("safemem.allocations"); err != nil {
			return nil, err
		}
		if p.releaseCounter, err = cfg.Meter.Int64Counter("safemem.releases"); err != nil {
			return nil, err
		}
	}

	if cfg.ArenaCapacity > 0 {
		if cfg.Tracer != nil {
			_, span := cfg.Tracer.Start(context.Background(), "alloc.reserve")
			defer span.End()
		}
		vm, err := hostmem.VirtualMemory()
		if err == nil && uint64(cfg.ArenaCapacity) > vm.Available {
			return nil, fmt.Errorf("%w: want %d, host has %d", ErrNotEnoughMemory, cfg.ArenaCapacity, vm.Available)
		}
		a, err := newArena(cfg.ArenaCapacity, cfg.Slabs, p.log)
		if err != nil {
			return nil, err
		}
		p.arena = a
	} else if len(cfg.Slabs) > 0 {
		return nil, fmt.Errorf("%w: slab layout given without arena capacity", ErrInvalidConfig)
	}

	return p, nil
}

func regionKey(region []byte) string {
	return fmt.Sprintf("%p", unsafe.SliceData(region))
}

// Alloc returns a zero-initialized region of exactly size bytes in the given
// residency class. It never retries; exhaustion is reported immediately.
func (p *Pool) Alloc(size int, class Class) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	var region []byte
	switch class {
	case NonPaged:
		if p.arena == nil {
			return nil, ErrNoArena
		}
		var err error
		if region, err = p.arena.alloc(size); err != nil {
			return nil, err
		}
	case Paged:
		region = p.allocPaged(size)
	default:
		return nil, fmt.Errorf("%w: unknown residency class %d", ErrInvalidConfig, class)
	}

	p.allocations.Add(1)
	p.live.Add(1)
	p.inUse.Add(int64(size))
	if p.allocCounter != nil {
		p.allocCounter.Add(context.Background(), 1)
	}
	if logging.DebugMode() {
		track.Add(regionKey(region), track.Entry{Size: size, Class: class.String()})
	}
	return region, nil
}

func (p *Pool) allocPaged(size int) []byte {
	bb := bytebufferpool.Get()
	if cap(bb.B) < size {
		bb.B = make([]byte, size)
	} else {
		bb.B = bb.B[:size]
		clear(bb.B)
	}
	region := bb.B
	p.paged.Set(regionKey(region), &pagedRegion{buf: bb, size: size})
	return region
}

// AllocWait is the blocking variant of Alloc: on exhaustion it retries with
// exponential backoff until a region frees up or ctx ends. Any error other
// than exhaustion is returned immediately.
func (p *Pool) AllocWait(ctx context.Context, size int, class Class) ([]byte, error) {
	var region []byte
	op := func() error {
		r, err := p.Alloc(size, class)
		switch err {
		case nil:
			region = r
			return nil
		case ErrArenaExhausted:
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return region, nil
}

// Release returns a region to the pool. Releasing a region the pool never
// handed out, or releasing one twice, is a fatal programming error and
// panics rather than corrupting the free lists.
func (p *Pool) Release(region []byte) {
	if len(region) == 0 {
		return
	}
	key := regionKey(region)
	if logging.DebugMode() && !track.Remove(key) {
		panic("alloc: release of untracked region " + key)
	}

	if p.arena != nil && p.arena.contains(region) {
		p.arena.release(region)
	} else {
		pr, ok := p.paged.Get(key)
		if !ok {
			panic("alloc: release of region not owned by this pool")
		}
		p.paged.Remove(key)
		bytebufferpool.Put(pr.buf)
	}

	p.releases.Add(1)
	p.live.Add(-1)
	p.inUse.Add(-int64(len(region)))
	if p.releaseCounter != nil {
		p.releaseCounter.Add(context.Background(), 1)
	}
}

// Stats snapshots the pool accounting.
func (p *Pool) Stats() Stats {
	s := Stats{
		Allocations: p.allocations.Load(),
		Releases:    p.releases.Load(),
		LiveRegions: p.live.Load(),
		BytesInUse:  p.inUse.Load(),
	}
	if p.arena != nil {
		s.ArenaCapacity = len(p.arena.mem)
		s.ArenaSlots = p.arena.totalSlots()
		s.ArenaFree = p.arena.freeSlots()
		s.ArenaPinned = p.arena.pinned
	}
	return s
}

// Close unpins and drops the arena. Live regions at close time are leaks and
// are logged, not recovered.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPoolClosed
	}
	if live := p.live.Load(); live > 0 {
		p.log.Warnf("pool: closing with %d live regions (%d bytes)", live, p.inUse.Load())
		if logging.DebugMode() {
			for key, e := range track.Entries() {
				p.log.Warnf("pool: leaked region %s size=%d class=%s", key, e.Size, e.Class)
			}
		}
	}
	if p.arena != nil {
		p.arena.close(p.log)
	}
	return nil
}
