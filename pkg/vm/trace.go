package vm

import (
	"fmt"
	"os"

	"github.com/kristofer/ember/pkg/opcode"
)

// TraceSink receives one event per DEBUG opcode executed (§4.3: DEBUG
// is a no-op to the language but a hook point for tooling) and, if
// WantsEveryOp returns true, one event per instruction fetched. This
// plays the role the teacher's interactive Debugger played, narrowed
// to the single write-only hook spec.md actually calls for — no
// breakpoints, no stepping, no REPL (§1 Non-goals).
type TraceSink interface {
	// OnDebug fires for every DEBUG instruction, carrying the current
	// frame depth and instruction pointer.
	OnDebug(depth, pc int)

	// OnOp fires before every instruction dispatches, only if
	// WantsEveryOp reports true; used for opcode-level profiling.
	OnOp(depth, pc int, op opcode.Opcode)

	// WantsEveryOp reports whether the dispatch loop should pay for an
	// OnOp call on every instruction. Sinks that only care about DEBUG
	// should return false to keep the hot loop branch-free.
	WantsEveryOp() bool
}

// NoTrace discards every event; the zero-cost default for an embedder
// with no tooling attached.
type NoTrace struct{}

// OnDebug implements TraceSink.
func (NoTrace) OnDebug(int, int) {}

// OnOp implements TraceSink.
func (NoTrace) OnOp(int, int, opcode.Opcode) {}

// WantsEveryOp implements TraceSink.
func (NoTrace) WantsEveryOp() bool { return false }

// StdoutTrace is a TraceSink printing DEBUG events to stderr; the
// module's default, since silence-by-default would make the DEBUG
// opcode pointless to ship in example programs.
type StdoutTrace struct{}

// OnDebug implements TraceSink.
func (StdoutTrace) OnDebug(depth, pc int) {
	fmt.Fprintf(os.Stderr, "debug: depth=%d pc=%d\n", depth, pc)
}

// OnOp implements TraceSink.
func (StdoutTrace) OnOp(depth, pc int, op opcode.Opcode) {
	fmt.Fprintf(os.Stderr, "trace: depth=%d pc=%d %s\n", depth, pc, op)
}

// WantsEveryOp implements TraceSink.
func (StdoutTrace) WantsEveryOp() bool { return false }
