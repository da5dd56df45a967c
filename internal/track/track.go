// Package track keeps a registry of live allocations while debug mode is on,
// so leaked or double-released regions can be attributed.
package track

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Entry describes one live region.
type Entry struct {
	Size  int
	Class string
}

var live = cmap.New[Entry]()

// Add records a live region under key (the region's address, formatted).
func Add(key string, e Entry) {
	live.Set(key, e)
}

// Remove forgets a region. It reports false when the key was never recorded,
// which means a foreign or already-released region.
func Remove(key string) bool {
	if _, ok := live.Get(key); !ok {
		return false
	}
	live.Remove(key)
	return true
}

// Count returns the number of live regions.
func Count() int {
	return live.Count()
}

// Entries snapshots the live set, keyed by region address.
func Entries() map[string]Entry {
	return live.Items()
}
