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

// Guard scope-binds a Lock: Hold acquires it immediately and Release, run
// via defer, balances the acquisition on every exit path, early returns and
// panics included.
//
//	g := safe.Hold(&mu)
//	defer g.Release()
type Guard struct {
	noCopy noCopy

	l    Lock
	held bool
}

// Hold acquires l and returns the guard that releases it. A nil lock is
// tolerated: the guard then holds nothing and Release is a no-op.
func Hold(l Lock) *Guard {
	g := &Guard{l: l}
	if l != nil {
		l.Lock()
		g.held = true
	}
	return g
}

// Release unlocks the guarded lock. Safe to call more than once; only the
// first call releases.
func (g *Guard) Release() {
	if g.held {
		g.held = false
		g.l.Unlock()
	}
}

// Held reports whether the guard still holds its lock.
func (g *Guard) Held() bool {
	return g.held
}
