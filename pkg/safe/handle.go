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
	"errors"
	"unsafe"

	"github.com/srediag/safemem/pkg/alloc"
)

// Allocator is the storage backend the ownership handles draw from.
// *alloc.Pool satisfies it. Alloc must return zero-initialized memory of
// exactly the requested size in the requested residency class.
type Allocator interface {
	Alloc(size int, class alloc.Class) ([]byte, error)
	Release(region []byte)
}

var (
	// ErrNilAllocator means a handle constructor was given a nil backend.
	ErrNilAllocator = errors.New("safe: nil allocator")

	// ErrBadCount means a slice handle was asked for a non-positive element
	// count.
	ErrBadCount = errors.New("safe: element count must be positive")

	// ErrUndersized means a caller-sized construction was smaller than the
	// payload type it must hold.
	ErrUndersized = errors.New("safe: sized construction smaller than payload type")
)

func sizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// placeAt views the front of region as a *T. The region is allocator-owned
// and zeroed, which in Go is exactly a default-constructed T. Alignment
// holds because allocator regions start 8-aligned and no Go type requires
// more.
func placeAt[T any](region []byte) *T {
	return (*T)(unsafe.Pointer(unsafe.SliceData(region)))
}
