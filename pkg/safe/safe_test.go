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
	"testing"

	"github.com/srediag/safemem/pkg/alloc"
)

// header is a pointer-free payload type used across the handle tests.
type header struct {
	Tag   uint32
	Flags uint32
	Seq   int64
}

func newTestPool(tb testing.TB) *alloc.Pool {
	tb.Helper()
	pool, err := alloc.New(alloc.Config{
		ArenaCapacity: 1 << 16,
		Slabs: []alloc.SizePercentPair{
			{Size: 64, Percent: 50},
			{Size: 4096, Percent: 50},
		},
	})
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { _ = pool.Close() })
	return pool
}
