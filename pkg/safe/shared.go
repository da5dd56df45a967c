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
	"sync/atomic"
	"unsafe"

	"github.com/srediag/safemem/pkg/alloc"
)

// state is the control block behind a Shared: the payload region and the
// atomic count of outstanding handles. The count is 1 from construction and
// the payload is destroyed exactly when it transitions to 0.
type state[T any] struct {
	refs   atomic.Int64
	a      Allocator
	region []byte
	ptr    *T
	elems  []T
	fin    func(*T)
}

// ref publishes one more handle. It must complete before the new handle is
// visible to any other execution context; Clone guarantees that by
// incrementing before it returns.
func (s *state[T]) ref() {
	s.refs.Add(1)
}

// deref drops one handle and reports whether this caller observed the zero
// transition. The atomic result alone decides — re-reading the count here
// would let two droppers both (or neither) conclude they are last.
func (s *state[T]) deref() bool {
	return s.refs.Add(-1) == 0
}

func (s *state[T]) destroy() {
	if s.fin != nil {
		if s.elems != nil {
			for i := range s.elems {
				s.fin(&s.elems[i])
			}
		} else {
			s.fin(s.ptr)
		}
	}
	s.a.Release(s.region)
	s.region = nil
	s.ptr = nil
	s.elems = nil
}

// Shared is a counted view onto one control block. The zero value is the
// null handle: every operation on it is a no-op. Duplicate with Clone —
// plain assignment copies the view without taking a reference, leaving two
// names for one release obligation.
//
// Any number of handles may reference the same payload from different
// goroutines; the payload itself carries no protection against concurrent
// mutation. Compose a Lock for that.
type Shared[T any] struct {
	st *state[T]
}

func newShared[T any](a Allocator, size int, count int, class alloc.Class) (Shared[T], error) {
	if a == nil {
		return Shared[T]{}, ErrNilAllocator
	}
	region, err := a.Alloc(size, class)
	if err != nil {
		return Shared[T]{}, err
	}
	st := &state[T]{a: a, region: region, ptr: placeAt[T](region)}
	if count > 0 {
		st.elems = unsafe.Slice(st.ptr, count)
	}
	st.refs.Store(1)
	return Shared[T]{st: st}, nil
}

// NewShared allocates storage sized from T in the given residency class,
// default-constructs the payload, and returns the first handle (count 1).
func NewShared[T any](a Allocator, class alloc.Class) (Shared[T], error) {
	return newShared[T](a, sizeOf[T](), 0, class)
}

// NewSharedSlice allocates a fixed array of count default-constructed
// elements under shared ownership.
func NewSharedSlice[T any](a Allocator, count int, class alloc.Class) (Shared[T], error) {
	if count <= 0 {
		return Shared[T]{}, ErrBadCount
	}
	return newShared[T](a, count*sizeOf[T](), count, class)
}

// NewSharedSized allocates a caller-specified byte size, at least sizeof(T),
// with the payload constructed over its front.
func NewSharedSized[T any](a Allocator, size int, class alloc.Class) (Shared[T], error) {
	if size < sizeOf[T]() {
		return Shared[T]{}, ErrUndersized
	}
	return newShared[T](a, size, 0, class)
}

// Clone returns a new handle on the same payload. The count is incremented
// before Clone returns, so the new handle is never observable with an
// unaccounted reference. Cloning a null handle yields a null handle.
func (s Shared[T]) Clone() Shared[T] {
	if s.st != nil {
		s.st.ref()
	}
	return Shared[T]{st: s.st}
}

// Release drops this handle. The caller that observes the zero transition
// destroys the payload and returns its storage; everyone else does nothing
// more. The handle becomes null, so releasing it again is a no-op.
func (s *Shared[T]) Release() {
	st := s.st
	if st == nil {
		return
	}
	s.st = nil
	if st.deref() {
		st.destroy()
	}
}

// Ptr returns the payload, or nil for a null handle.
func (s Shared[T]) Ptr() *T {
	if s.st == nil {
		return nil
	}
	return s.st.ptr
}

// Elems returns the array payload, or nil for scalar, sized and null
// handles.
func (s Shared[T]) Elems() []T {
	if s.st == nil {
		return nil
	}
	return s.st.elems
}

// Bytes returns the raw shared storage, or nil for a null handle.
func (s Shared[T]) Bytes() []byte {
	if s.st == nil {
		return nil
	}
	return s.st.region
}

// OnFree installs the finalizer the last Release runs: once per element, in
// order, for array payloads, once on the payload otherwise. Install it
// before handing out clones.
func (s Shared[T]) OnFree(fn func(*T)) {
	if s.st != nil {
		s.st.fin = fn
	}
}

// UseCount returns the current handle count. Diagnostics only; it is stale
// the moment it is read.
func (s Shared[T]) UseCount() int64 {
	if s.st == nil {
		return 0
	}
	return s.st.refs.Load()
}

// IsNil reports whether this is the null handle.
func (s Shared[T]) IsNil() bool {
	return s.st == nil
}
