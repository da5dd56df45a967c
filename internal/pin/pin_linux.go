//go:build linux

package pin

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Pin locks the region into physical memory so it can never be swapped out
// (Linux implementation).
func Pin(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := unix.Mlock(region); err != nil {
		return fmt.Errorf("mlock: %w", err)
	}
	return nil
}

// Unpin releases the residency guarantee (Linux implementation).
func Unpin(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := unix.Munlock(region); err != nil {
		return fmt.Errorf("munlock: %w", err)
	}
	return nil
}
