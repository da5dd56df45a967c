//go:build !linux

package pin

// Pin is a no-op on platforms without mlock; the non-swappable class degrades
// to ordinary resident memory there.
func Pin(region []byte) error {
	return nil
}

// Unpin is a no-op on platforms without mlock.
func Unpin(region []byte) error {
	return nil
}
