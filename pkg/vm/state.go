// Package vm implements the register-based bytecode interpreter core:
// the operand stack and frame stack, the dispatch engine, the call and
// return protocol, argument reconciliation, and the exception/ensure
// machinery described in spec.md §3-§4.7.
//
// Execution Model:
//
// Unlike a stack machine, a register VM's "stack" is not pushed and
// popped one value at a time. Instead each call frame owns a window
// into one growable operand stack, addressed by small integer register
// numbers (A, B, C operands). A frame's window begins at its StackIdx
// — an absolute offset, never a raw pointer, so the whole array can be
// reallocated by growth without invalidating any frame (§4.2).
//
//	Source (conceptually): x = 2 + 3; return x
//
//	Bytecode:
//	  LOADI   R1, 2
//	  LOADI   R2, 3
//	  ADD     R1, R1, R2
//	  MOVE    R0, R1      ; (R0 is self; this example ignores it)
//	  RETURN  R1, normal
//
// Design Philosophy:
//
//   - Explicit state, no ambient storage: every entry point takes the
//     *State as a receiver or first parameter (§9 design note).
//   - Host and GC collaborators are interfaces (package host, package
//     gc): the dispatch engine never constructs a class or an array; it
//     asks the host for one and stores the opaque value.Value it gets
//     back.
//   - Growth sites re-derive every raw slice after a potential
//     reallocation; nothing holds a bare Go slice across an operation
//     that might grow the backing array (§4.2).
package vm

import (
	"fmt"

	"github.com/kristofer/ember/pkg/gc"
	"github.com/kristofer/ember/pkg/host"
	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

// Return-mode constants for RETURN's B operand (§4.7).
const (
	ReturnNormal = 0
	ReturnBreak  = 1
	ReturnReturn = 2
)

// Frame.Acc sentinels beyond "a real register index": accDiscard marks
// a call whose result no one reads (an ensure body, a class/module
// EXEC body); accCapture marks a call pushed by the public Funcall/
// Yield API, whose result should land in State.result even though the
// frame that produced it isn't literally frame 0 (§6).
const (
	accDiscard = -1
	accCapture = -2
)

// Frame ("call info", §3) is the record pushed on method entry and
// popped on return.
type Frame struct {
	MID         value.Symbol // method name this frame was invoked under
	Proc        *proc.Proc   // the executing procedure
	TargetClass value.Value  // class the method was defined in (super base)

	StackIdx int // absolute offset of this frame's register base
	NRegs    int // allocated register count

	// Argc is the argument count as passed; -1 means "packed into a
	// single array because it exceeded InlineMax" (§3).
	Argc int

	// Acc is the caller register that receives the return value, or one
	// of the sentinels accDiscard (-1, result dropped) and accCapture
	// (-2, result stored in State.result).
	Acc int

	PC int // this frame's resume pc, saved when it calls another procedure

	RIdx, EIdx int // rescue/ensure stack watermarks at frame entry (§4.7)

	Env *proc.Env // lazily-created environment, once any closure captures it

	blockArg value.Value // the block passed to this call, if any (BLKPUSH's source)
}

// ensureEntry is one procedure pushed on the ensure stack by EPUSH,
// to be invoked by EPOP or by an unwind crossing its frame (§4.7).
type ensureEntry struct {
	p     *proc.Proc
	frame int // frame stack index this entry belongs to
}

// Config holds the VM's tunable capacities. The zero Config is not
// usable directly; build one with DefaultConfig and Options, or just
// call New(h, gch, opts...) which applies DefaultConfig first.
type Config struct {
	InitialStack  int
	InitialFrames int
	// InlineMax is the largest argument count SEND/SUPER pass inline in
	// C before falling back to the packed-array convention (§3: 127).
	InlineMax int
	Trace     TraceSink
}

// DefaultConfig returns the capacities the teacher historically hard-
// coded (1024-slot stack, 64-frame call stack), now exposed as
// overridable defaults rather than compile-time constants.
func DefaultConfig() Config {
	return Config{
		InitialStack:  1024,
		InitialFrames: 64,
		InlineMax:     127,
		Trace:         StdoutTrace{},
	}
}

// Option configures a State at construction time, the pattern
// ccdavis-min-lang's register VM and gad-lang/gad's VM both use for
// their own tunables (initial register count, max frames).
type Option func(*Config)

// WithStackSize overrides the initial operand-stack capacity.
func WithStackSize(n int) Option { return func(c *Config) { c.InitialStack = n } }

// WithFrameCapacity overrides the initial frame-stack capacity.
func WithFrameCapacity(n int) Option { return func(c *Config) { c.InitialFrames = n } }

// WithTrace overrides the DEBUG opcode's trace sink.
func WithTrace(t TraceSink) Option { return func(c *Config) { c.Trace = t } }

// State is one VM execution context: the operand stack, the frame
// stack, the rescue and ensure stacks, the exception slot, and the
// working pointers (current irep, pc, register base) the dispatch loop
// rebinds on every control transfer (§3, §5: one state, one fiber of
// control, no concurrent access).
type State struct {
	Host host.Host
	GC   gc.Host
	cfg  Config

	stack []value.Value // operand stack; frames index into it by StackIdx
	ci    []Frame        // frame stack
	top   int            // index of the current frame in ci

	rescue []int // rescue stack: saved resume pc values
	ensure []ensureEntry

	exc value.Value // exception slot; value.Nil when clear

	// result holds the value passed to RETURN from the outermost frame,
	// set the instant runUntil's floor condition is satisfied.
	result value.Value

	// working pointers for the currently executing frame, rebound by
	// every opcode that transfers control (§3 invariants).
	irep *proc.Irep
	pc   int
}

// New creates a VM state bound to host h (class/variable/container
// resolution) and GC hooks gch (pass gc.NoOp{} if the embedding host
// does not need generational bookkeeping).
func New(h host.Host, gch gc.Host, opts ...Option) *State {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &State{
		Host:  h,
		GC:    gch,
		cfg:   cfg,
		stack: make([]value.Value, cfg.InitialStack),
		ci:    make([]Frame, 1, cfg.InitialFrames),
		exc:   value.Nil,
	}
	s.ci[0] = Frame{Acc: -1, StackIdx: 0, Argc: 0}
	return s
}

// CheckStack forces operand-stack capacity for at least n more slots
// above the current frame's base, implementing the exposed
// `checkstack(n)` host entry point (§6).
func (s *State) CheckStack(n int) {
	s.growStack(s.curFrame().StackIdx + n)
}

// curFrame returns the currently executing frame.
func (s *State) curFrame() *Frame { return &s.ci[s.top] }

// regs returns the current frame's register window. It must be
// re-derived (by calling regs() again) after any operation that may
// grow s.stack — never cached across such a call (§4.2 invariant).
func (s *State) regs() []value.Value {
	return s.stack[s.curFrame().StackIdx:]
}

// growStack implements the operand-stack grow policy of §4.2: double
// if the needed room is no larger than the current size, otherwise
// grow by exactly the needed room. The newly exposed region is left
// zero-valued (value.Value's zero value is TNil, i.e. nil).
func (s *State) growStack(top int) {
	if top < len(s.stack) {
		return
	}
	room := top - len(s.stack) + 1
	var newSize int
	if room <= len(s.stack) {
		newSize = len(s.stack) * 2
	} else {
		newSize = len(s.stack) + room
	}
	grown := make([]value.Value, newSize)
	copy(grown, s.stack)
	s.stack = grown
	s.fixupEnvs()
}

// fixupEnvs re-slices every live (still-aliasing) environment's
// register window against the freshly reallocated stack array. An Env
// stores the frame index it was captured from (CIOffset) rather than a
// raw pointer precisely so this reslice is always possible (§4.2,
// §4.4).
func (s *State) fixupEnvs() {
	for i := range s.ci {
		f := &s.ci[i]
		if f.Env != nil && f.Env.Live() {
			owner := &s.ci[f.Env.CIOffset]
			f.Env.Stack = s.stack[owner.StackIdx : owner.StackIdx+owner.NRegs]
		}
	}
}

// growFrames implements the frame-stack grow policy: double on demand.
func (s *State) growFrames() {
	grown := make([]Frame, len(s.ci), cap(s.ci)*2)
	copy(grown, s.ci)
	s.ci = grown
}

// pushFrame appends a new frame, growing the frame stack if needed,
// and returns its index.
func (s *State) pushFrame(f Frame) int {
	if len(s.ci) == cap(s.ci) {
		s.growFrames()
	}
	s.ci = append(s.ci, f)
	return len(s.ci) - 1
}

// popFrame discards the topmost frame and returns to its predecessor.
func (s *State) popFrame() {
	s.ci = s.ci[:len(s.ci)-1]
}

// Exception returns the current contents of the exception slot
// (value.Nil when clear).
func (s *State) Exception() value.Value { return s.exc }

// ClearException resets the exception slot to nil.
func (s *State) ClearException() { s.exc = value.Nil }

// Backtrace captures a snapshot of the live frame stack for
// RuntimeError (§7, adapted from the teacher's StackFrame capture).
func (s *State) Backtrace() []Frame {
	bt := make([]Frame, len(s.ci))
	copy(bt, s.ci)
	return bt
}

func (s *State) runtimeErrorf(format string, args ...any) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Trace: s.Backtrace()}
}
