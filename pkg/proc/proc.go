package proc

import "github.com/kristofer/ember/pkg/value"

// Native is a host-native procedure body: a Go function invoked with
// the running state (typed as `any` here to avoid an import cycle —
// package vm imports proc, so proc cannot import vm; vm.State supplies
// itself as the first argument and native bodies type-assert it) and
// the receiver, returning a value or an error. An error return sets the
// exception slot via the caller, exactly as a RAISE would.
type Native func(state any, self value.Value, args []value.Value) (value.Value, error)

// Proc is either a bytecode procedure (Body set, pointing at an Irep)
// or a host-native procedure (Native set). Exactly one of the two is
// populated. Strict records LAMBDA's strict (method-style) flag; the
// core's ENTER does not read it and raises ArgumentError on an arity
// mismatch for every procedure. An optional Env binds the procedure's
// captured upvalues, present only for closures created with LAMBDA's
// capture flag.
type Proc struct {
	Body   *Irep
	Native Native

	// TargetClass is the class this procedure was defined in; SUPER
	// resolution walks from its superclass.
	TargetClass value.Value

	// Env is the creating frame's environment, non-nil only for
	// closures. Upvalue access at nesting N follows Env.Parent N times.
	Env *Env

	Strict bool
}

// IsNative reports whether p is a host-native procedure.
func (p *Proc) IsNative() bool { return p.Native != nil }

// HeapKind implements value.Heap.
func (p *Proc) HeapKind() string { return "proc" }

// Env is a heap-resident register-window snapshot that lets a closure
// outlive the frame that created it (§3, §4.4).
//
// An Env is created in one of two states:
//
//   - live: Stack aliases a live frame's register window directly and
//     CIOffset is that frame's non-negative index in the frame stack.
//     Reads/writes go straight through to the operand stack.
//
//   - detached: the owning frame has since returned. CIOffset is -1 and
//     Stack points at a private copy made at return time (see the
//     dispatch engine's frame-pop path, which promotes any Env still
//     live at that point).
//
// Parent links the enclosing procedure's own environment, forming the
// upvalue chain GETUPVAR/SETUPVAR walk by nesting level.
type Env struct {
	Stack    []value.Value
	CIOffset int
	Parent   *Env
	MID      Sym
}

// HeapKind implements value.Heap.
func (e *Env) HeapKind() string { return "environment" }

// Live reports whether e still aliases a frame on the live frame stack.
func (e *Env) Live() bool { return e.CIOffset >= 0 }

// Detach promotes a live environment to an owned, private copy of its
// register window, called when the frame it aliases is about to be
// popped (§4.4: "the environment is promoted"). It is a no-op if e is
// already detached.
func (e *Env) Detach() {
	if !e.Live() {
		return
	}
	owned := make([]value.Value, len(e.Stack))
	copy(owned, e.Stack)
	e.Stack = owned
	e.CIOffset = -1
}

// At returns the upvalue at nesting level lv (0 = this environment's
// own window) and slot idx, or the zero Value and false if lv walks off
// the end of the chain.
func (e *Env) At(lv, idx int) (value.Value, bool) {
	cur := e
	for i := 0; i < lv; i++ {
		if cur == nil {
			return value.Value{}, false
		}
		cur = cur.Parent
	}
	if cur == nil || idx < 0 || idx >= len(cur.Stack) {
		return value.Value{}, false
	}
	return cur.Stack[idx], true
}

// Set stores an upvalue at nesting level lv and slot idx. It reports
// whether the slot existed.
func (e *Env) Set(lv, idx int, v value.Value) bool {
	cur := e
	for i := 0; i < lv; i++ {
		if cur == nil {
			return false
		}
		cur = cur.Parent
	}
	if cur == nil || idx < 0 || idx >= len(cur.Stack) {
		return false
	}
	cur.Stack[idx] = v
	return true
}
