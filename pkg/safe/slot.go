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

import "sync/atomic"

// Slot is a single pointer-sized location published and observed without
// locks. A Load returns the zero value or some pointer previously passed to
// Store/Exchange, never a torn value. The slot does not own its pointee and
// guarantees nothing about the pointee's contents — fully construct the
// pointee before publishing it.
type Slot[T any] struct {
	noCopy noCopy

	p atomic.Pointer[T]
}

// Load atomically reads the current pointer without blocking.
func (s *Slot[T]) Load() *T {
	return s.p.Load()
}

// Store atomically publishes p.
func (s *Slot[T]) Store(p *T) {
	s.p.Store(p)
}

// Exchange atomically publishes p and returns the pointer it replaced.
func (s *Slot[T]) Exchange(p *T) *T {
	return s.p.Swap(p)
}

// CompareAndSwap publishes new only if the slot still holds old, and reports
// whether it did.
func (s *Slot[T]) CompareAndSwap(old, new *T) bool {
	return s.p.CompareAndSwap(old, new)
}
