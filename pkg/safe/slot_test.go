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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srediag/safemem/pkg/alloc"
)

func TestSlotZeroValueLoadsNil(t *testing.T) {
	var s Slot[header]
	assert.Nil(t, s.Load())
}

func TestSlotExchangeReturnsPrevious(t *testing.T) {
	var s Slot[header]
	a := &header{Tag: 1}
	b := &header{Tag: 2}

	assert.Nil(t, s.Exchange(a))
	assert.Same(t, a, s.Load())
	assert.Same(t, a, s.Exchange(b))
	assert.Same(t, b, s.Load())
}

func TestSlotCompareAndSwap(t *testing.T) {
	var s Slot[header]
	a := &header{Tag: 1}
	b := &header{Tag: 2}

	assert.True(t, s.CompareAndSwap(nil, a))
	assert.False(t, s.CompareAndSwap(nil, b), "slot no longer holds nil")
	assert.True(t, s.CompareAndSwap(a, b))
	assert.Same(t, b, s.Load())
}

func TestSlotConcurrentPublishNeverTears(t *testing.T) {
	var s Slot[header]

	published := make([]*header, 8)
	allowed := make(map[*header]bool, len(published)+1)
	allowed[nil] = true
	for i := range published {
		published[i] = &header{Tag: uint32(i)}
		allowed[published[i]] = true
	}

	const writers = 4
	const readers = 4
	const iterations = 20000

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		w := w
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				prev := s.Exchange(published[(w+i)%len(published)])
				if !allowed[prev] {
					panic("exchange returned a never-published pointer")
				}
			}
		}()
	}
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if !allowed[s.Load()] {
					panic("load observed a never-published pointer")
				}
			}
		}()
	}
	wg.Wait()

	assert.True(t, allowed[s.Load()])
}

func TestSlotDoesNotOwnPointee(t *testing.T) {
	pool := newTestPool(t)

	var s Slot[header]
	u, err := NewUnique[header](pool, alloc.NonPaged)
	assert.Nil(t, err)

	// Publish a back-reference; lifetime stays with the handle.
	s.Store(u.Ptr())
	assert.Same(t, u.Ptr(), s.Load())

	u.Free()
	assert.EqualValues(t, 0, pool.Stats().LiveRegions)
}
