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

package safe

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"

	"github.com/srediag/safemem/pkg/alloc"
)

func TestSharedLifecycleScenario(t *testing.T) {
	pool := newTestPool(t)

	a, err := NewShared[header](pool, alloc.NonPaged)
	assert.Nil(t, err)
	assert.EqualValues(t, 1, a.UseCount())

	destroyed := false
	a.OnFree(func(*header) { destroyed = true })

	b := a.Clone()
	assert.EqualValues(t, 2, a.UseCount())
	assert.Same(t, a.Ptr(), b.Ptr())

	a.Release()
	assert.True(t, a.IsNil())
	assert.False(t, destroyed, "payload must outlive the first drop")
	assert.EqualValues(t, 1, b.UseCount())
	assert.NotNil(t, b.Ptr())

	b.Release()
	assert.True(t, destroyed, "last drop destroys the payload")
	assert.EqualValues(t, 0, pool.Stats().LiveRegions)
}

func TestSharedNullHandleIsInert(t *testing.T) {
	var s Shared[header]
	assert.True(t, s.IsNil())
	assert.Nil(t, s.Ptr())
	assert.Nil(t, s.Elems())
	assert.Nil(t, s.Bytes())
	assert.EqualValues(t, 0, s.UseCount())

	c := s.Clone()
	assert.True(t, c.IsNil())
	assert.NotPanics(t, s.Release)
	assert.NotPanics(t, func() { s.OnFree(func(*header) {}) })
}

func TestSharedReleaseTwiceThroughSameHandle(t *testing.T) {
	pool := newTestPool(t)

	s, err := NewShared[header](pool, alloc.Paged)
	assert.Nil(t, err)

	destroys := 0
	s.OnFree(func(*header) { destroys++ })

	s.Release()
	s.Release() // handle is null now, must be a no-op
	assert.Equal(t, 1, destroys)
}

func TestSharedCloneKeepsPayloadAlive(t *testing.T) {
	pool := newTestPool(t)

	s, err := NewShared[header](pool, alloc.NonPaged)
	assert.Nil(t, err)
	s.Ptr().Seq = 99

	c := s.Clone()
	s.Release()

	assert.EqualValues(t, 99, c.Ptr().Seq)
	assert.EqualValues(t, 1, c.UseCount())
	c.Release()
	assert.EqualValues(t, 0, pool.Stats().LiveRegions)
}

func TestSharedSliceElementwiseFinalizers(t *testing.T) {
	pool := newTestPool(t)
	const k = 8

	s, err := NewSharedSlice[int64](pool, k, alloc.NonPaged)
	assert.Nil(t, err)
	elems := s.Elems()
	assert.Len(t, elems, k)
	for i := range elems {
		elems[i] = int64(i * 10)
	}

	var order []int64
	s.OnFree(func(v *int64) { order = append(order, *v) })

	c := s.Clone()
	s.Release()
	assert.Empty(t, order)
	c.Release()

	assert.Len(t, order, k)
	for i, v := range order {
		assert.EqualValues(t, i*10, v)
	}
}

func TestSharedSized(t *testing.T) {
	pool := newTestPool(t)

	s, err := NewSharedSized[header](pool, 512, alloc.Paged)
	assert.Nil(t, err)
	assert.Len(t, s.Bytes(), 512)
	s.Release()

	_, err = NewSharedSized[header](pool, 1, alloc.Paged)
	assert.ErrorIs(t, err, ErrUndersized)

	_, err = NewSharedSlice[header](pool, 0, alloc.Paged)
	assert.ErrorIs(t, err, ErrBadCount)

	_, err = NewShared[header](nil, alloc.Paged)
	assert.ErrorIs(t, err, ErrNilAllocator)
}

func TestSharedConcurrentCloneRelease(t *testing.T) {
	pool := newTestPool(t)
	const holders = 256

	root, err := NewShared[header](pool, alloc.NonPaged)
	assert.Nil(t, err)

	var destroys atomic.Int32
	root.OnFree(func(*header) { destroys.Add(1) })

	// Each worker gets its own clone, taken before the handle escapes to
	// the worker goroutine.
	clones := make([]Shared[header], holders)
	for i := range clones {
		clones[i] = root.Clone()
	}
	assert.EqualValues(t, holders+1, root.UseCount())

	workers, err := ants.NewPool(32)
	assert.Nil(t, err)
	defer workers.Release()

	stop := make(chan struct{})
	go func() {
		// The count may never be observed negative while handles drop.
		for {
			select {
			case <-stop:
				return
			default:
				if c := root.UseCount(); c < 0 {
					panic("negative use count observed")
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := range clones {
		wg.Add(1)
		i := i
		assert.Nil(t, workers.Submit(func() {
			defer wg.Done()
			// Churn: take and drop an extra reference before dropping ours.
			extra := clones[i].Clone()
			extra.Release()
			clones[i].Release()
		}))
	}
	wg.Wait()
	close(stop)

	assert.EqualValues(t, 0, destroys.Load(), "payload destroyed while the root handle is live")
	assert.EqualValues(t, 1, root.UseCount())

	root.Release()
	assert.EqualValues(t, 1, destroys.Load(), "payload must be destroyed exactly once")
	assert.EqualValues(t, 0, pool.Stats().LiveRegions)
}

func BenchmarkSharedCloneRelease(b *testing.B) {
	pool := newTestPool(b)

	root, err := NewShared[header](pool, alloc.NonPaged)
	if err != nil {
		b.Fatal(err)
	}
	defer root.Release()

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c := root.Clone()
			c.Release()
		}
	})
}
