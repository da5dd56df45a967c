// Package safe provides runtime-safety primitives for code that manages its
// own storage: exclusive and shared ownership handles over allocator-backed
// regions, a lock abstraction with a spin-wait implementation and a
// scope-bound guard, and a lock-free atomic pointer slot.
//
// Ownership handles place their payload over untyped storage owned by an
// alloc.Pool. The storage is invisible to the garbage collector, so payload
// types must not contain Go pointers (no slices, maps, strings, channels or
// pointer fields) — plain value types only.
//
// Example usage:
//
//	u, err := safe.NewUnique[Header](pool, alloc.NonPaged)
//	// ...
//	defer u.Free()
//	u.Ptr().Flags = 1
//
// Locks, guards, unique handles and slots embed a no-copy marker, so copying
// one by value is reported by `go vet`. A Shared handle is a small copyable
// view, but a plain copy is just another name for the same reference —
// duplicate ownership with Clone.
//
// Error policy: allocation failure is propagated as an error from every
// constructor, uniformly; nothing here retries or recovers. Misuse — a
// double Free, a release of foreign storage — panics rather than corrupting
// state. Lock acquisition has no error path at all.
package safe
