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
	"runtime"
	"sync/atomic"
)

// Lock is the mutual-exclusion capability the guard composes over.
// Lock blocks until exclusive access is obtained; it has no error path and
// no timeout. Unlock must only be called by the holder.
type Lock interface {
	Lock()
	Unlock()
}

// SpinLock is a busy-waiting Lock. Availability is a signed counter: 0 is
// free, -1 is held. Acquisition atomically decrements and, when it loses the
// race, rolls the decrement back and re-polls, so the counter can never be
// driven unboundedly negative by contending acquirers.
//
// Suitable only for critical sections that are short and never block; a
// holder that sleeps makes every waiter burn its core.
type SpinLock struct {
	noCopy noCopy

	avail atomic.Int64
}

var _ Lock = (*SpinLock)(nil)

// Lock spins until this context wins the counter.
func (l *SpinLock) Lock() {
	for {
		if l.avail.Add(-1) == -1 {
			return
		}
		// Lost the race: undo our decrement and wait for the holder.
		l.avail.Add(1)
		for l.avail.Load() != 0 {
			runtime.Gosched()
		}
	}
}

// Unlock releases the lock. Calling it without holding the lock corrupts the
// counter; that is a fatal programming error, not a recoverable one.
func (l *SpinLock) Unlock() {
	l.avail.Add(1)
}

// Ref returns the current counter value. Diagnostics only — the value is
// stale the moment it is read and must never drive a correctness decision.
func (l *SpinLock) Ref() int64 {
	return l.avail.Load()
}
