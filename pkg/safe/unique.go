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
	"unsafe"

	"github.com/srediag/safemem/pkg/alloc"
)

// Unique exclusively owns one allocator-backed payload: a single T, a
// fixed-count array of T, or a caller-sized region fronted by a T. There is
// deliberately no release/detach operation — ownership cannot leave the
// handle other than by Free. Use Shared when ownership must be transferred
// or duplicated.
//
// Unique is not safe for concurrent use; compose a Lock around it when
// multiple contexts touch the payload.
type Unique[T any] struct {
	noCopy noCopy

	a      Allocator
	region []byte
	ptr    *T
	elems  []T
	fin    func(*T)
}

// NewUnique allocates storage sized from T in the given residency class and
// default-constructs the payload in place.
func NewUnique[T any](a Allocator, class alloc.Class) (*Unique[T], error) {
	if a == nil {
		return nil, ErrNilAllocator
	}
	region, err := a.Alloc(sizeOf[T](), class)
	if err != nil {
		return nil, err
	}
	return &Unique[T]{a: a, region: region, ptr: placeAt[T](region)}, nil
}

// NewUniqueSlice allocates a fixed array of count default-constructed
// elements.
func NewUniqueSlice[T any](a Allocator, count int, class alloc.Class) (*Unique[T], error) {
	if a == nil {
		return nil, ErrNilAllocator
	}
	if count <= 0 {
		return nil, ErrBadCount
	}
	region, err := a.Alloc(count*sizeOf[T](), class)
	if err != nil {
		return nil, err
	}
	ptr := placeAt[T](region)
	return &Unique[T]{
		a:      a,
		region: region,
		ptr:    ptr,
		elems:  unsafe.Slice(ptr, count),
	}, nil
}

// NewUniqueSized allocates a caller-specified byte size, at least sizeof(T),
// and constructs the payload over its front. The variable-length tail is
// reachable through Bytes.
func NewUniqueSized[T any](a Allocator, size int, class alloc.Class) (*Unique[T], error) {
	if a == nil {
		return nil, ErrNilAllocator
	}
	if size < sizeOf[T]() {
		return nil, ErrUndersized
	}
	region, err := a.Alloc(size, class)
	if err != nil {
		return nil, err
	}
	return &Unique[T]{a: a, region: region, ptr: placeAt[T](region)}, nil
}

// Ptr returns the payload for use by its methods. The pointer must not
// outlive the handle.
func (u *Unique[T]) Ptr() *T {
	return u.ptr
}

// Elems returns the array payload, or nil for scalar and sized handles.
func (u *Unique[T]) Elems() []T {
	return u.elems
}

// Bytes returns the raw owned storage.
func (u *Unique[T]) Bytes() []byte {
	return u.region
}

// Len returns the element count of an array payload, 1 otherwise.
func (u *Unique[T]) Len() int {
	if u.elems != nil {
		return len(u.elems)
	}
	return 1
}

// OnFree installs a finalizer run by Free: once per element, in order, for
// array payloads, once on the payload otherwise.
func (u *Unique[T]) OnFree(fn func(*T)) {
	u.fin = fn
}

// Free destroys the payload and returns exactly the allocated storage.
// Freeing twice is a fatal programming error and panics.
func (u *Unique[T]) Free() {
	if u.region == nil {
		panic("safe: double free of unique handle")
	}
	if u.fin != nil {
		if u.elems != nil {
			for i := range u.elems {
				u.fin(&u.elems[i])
			}
		} else {
			u.fin(u.ptr)
		}
	}
	u.a.Release(u.region)
	u.region = nil
	u.ptr = nil
	u.elems = nil
}
