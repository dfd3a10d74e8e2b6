// Package gc describes the two hooks the dispatch engine calls into
// the (out-of-scope) garbage collector: an arena checkpoint bounding
// transient rooting work between opcodes, and a write barrier invoked
// whenever a heap container acquires a reference to a possibly younger
// value (§4.4, §5, §9).
//
// The real allocator/collector is an external collaborator per
// spec.md §1; this package only pins down the shape of the interface
// the core consumes, plus a no-op implementation suitable for a host
// that does not (yet) track generations.
package gc

import "github.com/kristofer/ember/pkg/value"

// Host is consumed by the dispatch engine once per opcode (arena
// checkpoint) and once per upvalue store in SETUPVAR (write barrier).
// The engine does not call WriteBarrier for array/hash mutation
// performed through host.Containers.
type Host interface {
	// ArenaSave returns a checkpoint that bounds the set of values
	// rooted by GC-visible temporaries created since the last restore.
	ArenaSave() int

	// ArenaRestore releases everything rooted after the checkpoint idx,
	// called by the dispatch loop after each opcode completes.
	ArenaRestore(idx int)

	// WriteBarrier is invoked after parent acquires a reference to
	// child, letting a generational collector remember the pointer
	// without a full re-scan of parent.
	WriteBarrier(parent, child value.Value)
}

// NoOp is a Host that performs no bookkeeping at all: ArenaSave always
// returns 0, ArenaRestore and WriteBarrier do nothing. It is the
// correct choice for a host with a non-generational or non-moving
// collector (or none at all, e.g. in tests), and is this module's
// default.
type NoOp struct{}

// ArenaSave implements Host.
func (NoOp) ArenaSave() int { return 0 }

// ArenaRestore implements Host.
func (NoOp) ArenaRestore(int) {}

// WriteBarrier implements Host.
func (NoOp) WriteBarrier(value.Value, value.Value) {}
