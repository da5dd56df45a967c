// Package health wires alloc.Pool capacity into HTTP liveness and readiness
// checks.
package health

import (
	"fmt"

	"github.com/heptiolabs/healthcheck"
	hostmem "github.com/shirou/gopsutil/v3/mem"

	"github.com/srediag/safemem/pkg/alloc"
)

// Options bound the checks.
type Options struct {
	// MaxArenaUsage fails the arena-capacity liveness check when the used
	// slot fraction exceeds it. Zero means 1.0 (only hard exhaustion fails).
	MaxArenaUsage float64
	// MinHostAvailable fails the host-memory readiness check when the host
	// has fewer available bytes. Zero disables the check.
	MinHostAvailable uint64
}

// NewHandler returns a healthcheck handler for pool. Serve it like any
// http.Handler; /live and /ready report the checks below.
func NewHandler(pool *alloc.Pool, opts Options) healthcheck.Handler {
	maxUsage := opts.MaxArenaUsage
	if maxUsage == 0 {
		maxUsage = 1.0
	}

	h := healthcheck.NewHandler()
	h.AddLivenessCheck("arena-capacity", func() error {
		s := pool.Stats()
		if s.ArenaSlots == 0 {
			return nil // no arena configured
		}
		used := float64(s.ArenaSlots-s.ArenaFree) / float64(s.ArenaSlots)
		if used > maxUsage {
			return fmt.Errorf("arena %.0f%% used, limit %.0f%%", used*100, maxUsage*100)
		}
		return nil
	})
	if opts.MinHostAvailable > 0 {
		h.AddReadinessCheck("host-memory", func() error {
			vm, err := hostmem.VirtualMemory()
			if err != nil {
				return err
			}
			if vm.Available < opts.MinHostAvailable {
				return fmt.Errorf("host has %d bytes available, floor %d", vm.Available, opts.MinHostAvailable)
			}
			return nil
		})
	}
	return h
}
