// Package alloc provides the allocation backend for the ownership handles in
// pkg/safe: zero-initialized storage regions in two residency classes.
//
// The NonPaged class draws fixed-size slots from a pre-reserved arena that is
// locked into physical memory, so a region can never be swapped out. The
// Paged class draws ordinary pageable storage from a buffer pool.
//
// Example usage:
//
//	pool, err := alloc.New(alloc.Config{
//	  ArenaCapacity: 1 << 20,
//	  Slabs: []alloc.SizePercentPair{
//	    {Size: 64, Percent: 70},
//	    {Size: 4096, Percent: 30},
//	  },
//	})
//	// ...
//	region, err := pool.Alloc(512, alloc.NonPaged)
//	defer pool.Release(region)
package alloc
