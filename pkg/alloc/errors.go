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

import "errors"

var (
	// ErrArenaExhausted means no free slot of a suitable size is left in the
	// non-paged arena.
	ErrArenaExhausted = errors.New("alloc: non-paged arena exhausted")

	// ErrRegionTooLarge means the requested size exceeds the largest slab
	// slot the arena was laid out with.
	ErrRegionTooLarge = errors.New("alloc: requested size exceeds largest arena slot")

	// ErrNotEnoughMemory means the host did not have enough available memory
	// to reserve the arena.
	ErrNotEnoughMemory = errors.New("alloc: not enough available host memory to reserve arena")

	// ErrNoArena means a NonPaged allocation was requested from a pool that
	// was built without an arena.
	ErrNoArena = errors.New("alloc: pool has no non-paged arena")

	// ErrInvalidSize means a non-positive allocation size.
	ErrInvalidSize = errors.New("alloc: allocation size must be positive")

	// ErrInvalidConfig means the pool configuration cannot produce a usable
	// arena layout.
	ErrInvalidConfig = errors.New("alloc: invalid pool configuration")

	// ErrPoolClosed means the pool was already closed.
	ErrPoolClosed = errors.New("alloc: pool is closed")
)
