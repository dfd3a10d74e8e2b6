package vm

import (
	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

// callSpec bundles together everything SEND, SUPER, TAILCALL, and CALL
// need to transfer control to a procedure, whether that procedure is
// found by method search or taken directly from a register (CALL).
type callSpec struct {
	mid   value.Symbol
	recv  value.Value
	args  []value.Value
	block value.Value // value.Nil if no block argument was passed
	acc   int         // caller register the result lands in
	tail  bool        // reuse the current frame instead of pushing one
}

// resolveMethod performs §6's method_search for a normal (non-super) call.
func (s *State) resolveMethod(recv value.Value, mid value.Symbol) (*proc.Proc, value.Value, error) {
	class := s.Host.ClassOf(recv)
	p, definedIn, ok := s.Host.MethodSearch(class, mid)
	if !ok {
		name := s.Host.SymbolName(mid)
		return nil, value.Nil, s.runtimeErrorf("undefined method `%s'", name).(*RuntimeError).withException(
			s.Host.NewException("NoMethodError", "undefined method `"+name+"'"))
	}
	return p, definedIn, nil
}

// resolveMethodOrMissing performs method_search for mid and, on a miss,
// retries against method_missing with mid itself (as a symbol)
// prepended to args, exactly §4.5 step 1's rewrite. It reports the mid
// and args the call actually proceeds with, which differ from the
// caller's own mid/args only when the rewrite fired. NoMethodError is
// raised only once method_missing itself also fails to resolve.
func (s *State) resolveMethodOrMissing(recv value.Value, mid value.Symbol, args []value.Value) (value.Symbol, *proc.Proc, value.Value, []value.Value, error) {
	p, definedIn, err := s.resolveMethod(recv, mid)
	if err == nil {
		return mid, p, definedIn, args, nil
	}
	mmSym := s.Host.Intern("method_missing")
	class := s.Host.ClassOf(recv)
	mp, mDefinedIn, ok := s.Host.MethodSearch(class, mmSym)
	if !ok {
		return mid, nil, value.Nil, nil, err
	}
	rewritten := append([]value.Value{value.Sym(mid)}, args...)
	return mmSym, mp, mDefinedIn, rewritten, nil
}

// resolveSuper performs §6's method_search for SUPER: the walk starts
// one class above the defining class of the currently executing
// method, using the current frame's own method id (SUPER never
// renames the message).
func (s *State) resolveSuper(recv value.Value) (value.Symbol, *proc.Proc, value.Value, error) {
	cur := s.curFrame()
	mid := cur.MID
	super := s.Host.Superclass(cur.TargetClass)
	p, definedIn, ok := s.Host.MethodSearch(super, mid)
	if !ok {
		name := s.Host.SymbolName(mid)
		return mid, nil, value.Nil, s.runtimeErrorf("no superclass method `%s'", name).(*RuntimeError).withException(
			s.Host.NewException("NoMethodError", "no superclass method `"+name+"'"))
	}
	return mid, p, definedIn, nil
}

// withException attaches a language-level exception value to an
// already-built RuntimeError, used when a lookup failure needs both a
// Go-level error (to unwind the dispatch loop) and a value the RAISE
// machinery can hand to a matching RESCUE.
func (e *RuntimeError) withException(exc value.Value) *RuntimeError {
	e.Exc = exc
	return e
}

// dispatch transfers control to spec's procedure (native or bytecode)
// described by cs and definedIn (the class it was found in, becoming
// the callee frame's TargetClass so a SUPER inside it resumes the
// walk from the right point, §6).
//
// A native procedure runs to completion synchronously and its result
// is written straight to the caller's accumulator register. A
// bytecode procedure instead pushes (or, if cs.tail, reuses) a frame
// and rebinds the dispatch loop's working pointers (irep/pc); its
// result reaches the accumulator later, when RETURN executes.
func (s *State) dispatch(cs callSpec, p *proc.Proc, definedIn value.Value) error {
	if p.IsNative() {
		result, err := p.Native(s, cs.recv, cs.args)
		if err != nil {
			return s.raiseGoError(err)
		}
		s.regs()[cs.acc] = result
		return nil
	}
	return s.enterFrame(cs, p, definedIn)
}

// enterFrame pushes (or, for a tail call, overwrites) the frame for a
// bytecode procedure and lays the receiver and arguments into its
// register window (§4.2). Arity reconciliation happens later, when the
// callee's own ENTER instruction executes (§4.6).
func (s *State) enterFrame(cs callSpec, p *proc.Proc, definedIn value.Value) error {
	irep := p.Body
	if irep == nil || len(irep.Instructions) == 0 {
		return s.runtimeErrorf("procedure has no body")
	}

	var base int
	if cs.tail {
		base = s.curFrame().StackIdx
	} else {
		base = s.curFrame().StackIdx + s.curFrame().NRegs
	}
	need := base + irep.NRegs
	s.growStack(need)

	// Lay out R(0) = receiver, R(1..argc) = arguments. The window may
	// overlap the caller's own window (tail call) or sit just past it.
	regs := s.stack
	regs[base] = cs.recv
	for i, a := range cs.args {
		regs[base+1+i] = a
	}
	// Clear any registers beyond argc up to NRegs so stale values from
	// a reused (tail-call) window never leak into a fresh frame.
	for i := base + 1 + len(cs.args); i < base+irep.NRegs; i++ {
		regs[i] = value.Nil
	}

	argc := len(cs.args)
	if argc > s.cfg.InlineMax {
		packed := s.Host.NewArray(cs.args)
		regs[base+1] = packed
		argc = -1
	}

	newFrame := Frame{
		MID:         cs.mid,
		Proc:        p,
		TargetClass: definedIn,
		StackIdx:    base,
		NRegs:       irep.NRegs,
		Argc:        argc,
		Acc:         cs.acc,
		PC:          0,
		RIdx:        len(s.rescue),
		EIdx:        len(s.ensure),
	}

	if cs.tail {
		// Reuse the current frame slot: the caller's own frame is gone
		// the instant the callee starts, keeping the frame stack depth
		// bounded across an unbounded tail-call chain (§4.5, §8).
		newFrame.Acc = s.curFrame().Acc
		s.ci[s.top] = newFrame
	} else {
		// Save the caller's resume point before transferring control.
		s.curFrame().PC = s.pc
		s.top = s.pushFrame(newFrame)
	}

	s.irep = irep
	s.pc = 0
	s.enterArity(p, argc, cs.block)
	return nil
}

// enterArity stores the block argument on the freshly entered frame.
// It does not execute or inspect the callee's ENTER instruction; a
// procedure with no ENTER (e.g. a thin native trampoline body) accepts
// whatever it was given.
func (s *State) enterArity(p *proc.Proc, argc int, block value.Value) {
	// ENTER, if present, is always the first instruction of a
	// procedure's body; argument reconciliation happens inline inside
	// the ordinary dispatch loop, so this hook only needs to stash the
	// block argument where BLKPUSH can find it.
	s.curFrame().blockArg = block
}
