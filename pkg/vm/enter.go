package vm

import (
	"github.com/kristofer/ember/pkg/opcode"
	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

// unpackSendArgs reads SEND/SUPER/TAILCALL's argument window starting
// at R(a+1): c inline values, or, if c == opcode.PackedArgs, a single
// array at R(a+1) unpacked via the host. The block argument (if any)
// follows immediately after. Both are copied out of the register
// window rather than sliced from it, since the callee's frame may
// reuse or grow the very stack region they were read from.
func (s *State) unpackSendArgs(r []value.Value, a, c int) ([]value.Value, value.Value, error) {
	if c == opcode.PackedArgs {
		elems, ok := s.Host.AsArray(r[a+1])
		if !ok {
			return nil, value.Nil, s.runtimeErrorf("packed SEND argument is not an array")
		}
		args := append([]value.Value(nil), elems...)
		return args, r[a+2], nil
	}
	args := append([]value.Value(nil), r[a+1:a+1+c]...)
	return args, r[a+1+c], nil
}

// execSend implements SEND (and the FSEND/VSEND variants, which share
// SEND's layout — the core dispatches all three identically, leaving
// any selector-visibility distinction to the host's method search) and,
// when super is true, SUPER (§4.5, §6).
//
//	SEND  A B C : R(A) := call(R(A), Syms[B], R(A+1)..R(A+C)[, block])
//	SUPER A _ C : R(A) := call(R(A), <current method id>, ... as above)
func (s *State) execSend(ins opcode.Instruction, super bool) error {
	a := ins.A()
	r := s.regs()
	recv := r[a]

	args, block, err := s.unpackSendArgs(r, a, ins.C())
	if err != nil {
		return err
	}

	var mid value.Symbol
	var p *proc.Proc
	var definedIn value.Value
	var lookupErr error

	if super {
		mid, p, definedIn, lookupErr = s.resolveSuper(recv)
	} else {
		mid, p, definedIn, args, lookupErr = s.resolveMethodOrMissing(recv, s.sym(ins.B()), args)
	}
	if lookupErr != nil {
		return s.raiseGoError(lookupErr)
	}

	cs := callSpec{mid: mid, recv: recv, args: args, block: block, acc: a}
	return s.dispatch(cs, p, definedIn)
}

// execTailcall implements TAILCALL: identical argument and method
// resolution to execSend, but the callee reuses the current frame
// instead of pushing a new one, keeping an unbounded tail-recursive
// chain's frame stack depth bounded (§4.5, §8).
func (s *State) execTailcall(ins opcode.Instruction) error {
	a := ins.A()
	r := s.regs()
	recv := r[a]

	args, block, err := s.unpackSendArgs(r, a, ins.C())
	if err != nil {
		return err
	}
	mid, p, definedIn, args, lookupErr := s.resolveMethodOrMissing(recv, s.sym(ins.B()), args)
	if lookupErr != nil {
		return s.raiseGoError(lookupErr)
	}

	cs := callSpec{mid: mid, recv: recv, args: args, block: block, acc: a, tail: true}
	return s.dispatch(cs, p, definedIn)
}

// execCall implements CALL A: invoke the procedure object in R(A)
// directly, reusing the current frame's already-reconciled arguments
// and block — the trampoline a host uses to make `define_method`-style
// indirection through a stored Proc behave exactly like the method
// that was replaced by it (§4.5).
func (s *State) execCall(ins opcode.Instruction) error {
	cur := s.curFrame()
	r := s.regs()
	target := r[ins.A()]
	p, ok := target.Heap().(*proc.Proc)
	if !ok {
		return s.runtimeErrorf("CALL target is not a procedure")
	}

	var args []value.Value
	if cur.Argc < 0 {
		elems, _ := s.Host.AsArray(r[1])
		args = append([]value.Value(nil), elems...)
	} else {
		args = append([]value.Value(nil), r[1:1+cur.Argc]...)
	}

	cs := callSpec{mid: cur.MID, recv: r[0], args: args, block: cur.blockArg, acc: cur.Acc, tail: true}
	return s.dispatch(cs, p, p.TargetClass)
}

// execArgary implements ARGARY A Bx: rebuild the array of positional
// arguments the current method was actually invoked with, the
// mechanism a bare `super` (no parens, no explicit arguments) uses to
// forward its caller's own argument list unexamined. Bx is reserved for
// a future nested-block variant and is ignored by this core.
func (s *State) execArgary(ins opcode.Instruction) error {
	cur := s.curFrame()
	r := s.regs()
	var args []value.Value
	if cur.Argc < 0 {
		elems, _ := s.Host.AsArray(r[1])
		args = elems
	} else {
		args = r[1 : 1+cur.Argc]
	}
	r[ins.A()] = s.Host.NewArray(args)
	return nil
}

// execEnter implements ENTER: reconcile the callee's declared arity
// against the actual argument list laid down by dispatch/enterFrame at
// R(1).., filling mandatory, optional, rest, and post-mandatory
// register slots per §4.6's m1/o/r/m2/b layout. A procedure with no
// optional-default expressions simply leaves an unfilled optional slot
// as nil; this core does not run a per-optional jump table. Arity is
// checked the same way for every procedure, whether or not Proc.Strict
// is set, and a single array argument is not auto-splatted.
func (s *State) execEnter(ins opcode.Instruction) error {
	spec := opcode.UnpackEnter(ins.Ax())
	cur := s.curFrame()

	var args []value.Value
	if cur.Argc < 0 {
		elems, ok := s.Host.AsArray(s.regs()[1])
		if !ok {
			return s.raiseGoError(s.argumentError("packed arguments are not an array"))
		}
		args = elems
	} else {
		args = append([]value.Value(nil), s.regs()[1:1+cur.Argc]...)
	}

	required := spec.M1 + spec.M2
	n := len(args)
	if n < required {
		return s.raiseGoError(s.argumentError("wrong number of arguments (given %d, expected %d)", n, required))
	}
	if !spec.R && n > required+spec.O {
		want := required + spec.O
		return s.raiseGoError(s.argumentError("wrong number of arguments (given %d, expected %d)", n, want))
	}

	optGiven := spec.O
	if n-required < optGiven {
		optGiven = n - required
	}

	r := s.regs()
	pos := 1
	idx := 0
	for i := 0; i < spec.M1; i++ {
		r[pos] = args[idx]
		idx++
		pos++
	}
	for i := 0; i < spec.O; i++ {
		if i < optGiven {
			r[pos] = args[idx]
			idx++
		} else {
			r[pos] = value.Nil
		}
		pos++
	}
	if spec.R {
		restLen := n - required - optGiven
		if restLen < 0 {
			restLen = 0
		}
		rest := append([]value.Value(nil), args[idx:idx+restLen]...)
		idx += restLen
		r[pos] = s.Host.NewArray(rest)
		pos++
	}
	for i := 0; i < spec.M2; i++ {
		if idx < len(args) {
			r[pos] = args[idx]
			idx++
		} else {
			r[pos] = value.Nil
		}
		pos++
	}
	if spec.B {
		r[pos] = cur.blockArg
		pos++
	}
	return nil
}

// execKarg implements KARG: keyword arguments are a reserved, unused
// extension point in this core (§4.6's k/kd fields are carried through
// ENTER's encoding but never produced by an assembler this module
// ships); R(A) is set to nil rather than faulting, so a procedure
// compiled expecting a keyword that was never passed degrades to "not
// given" instead of crashing the dispatch loop.
func (s *State) execKarg(ins opcode.Instruction) error {
	s.regs()[ins.A()] = value.Nil
	return nil
}

// execKdict implements KDICT: materializes the (always empty, in this
// core) keyword-rest dictionary.
func (s *State) execKdict(ins opcode.Instruction) error {
	s.regs()[ins.A()] = s.Host.NewHash(nil)
	return nil
}

// execBlkpush implements BLKPUSH A Bx: load the block argument passed
// to the current call into R(A), raising LocalJumpError if none was
// given (§4.7, §8).
func (s *State) execBlkpush(ins opcode.Instruction) error {
	blk := s.curFrame().blockArg
	if blk.IsNil() {
		return s.raiseGoError(s.localJumpError("no block given"))
	}
	s.regs()[ins.A()] = blk
	return nil
}

// execReturn implements RETURN A B, dispatching to the three return
// modes of §4.7.
func (s *State) execReturn(ins opcode.Instruction) error {
	val := s.regs()[ins.A()]
	switch ins.B() {
	case ReturnNormal:
		return s.doReturn(val)
	case ReturnBreak, ReturnReturn:
		return s.doNonLocalReturn(val)
	default:
		return s.runtimeErrorf("unknown RETURN mode %d", ins.B())
	}
}

// runEnsuresToWatermark runs (and pops) ensure-stack entries down to
// floor, in LIFO order, as a normal return crossing them requires
// (§4.7).
func (s *State) runEnsuresToWatermark(floor int) error {
	for len(s.ensure) > floor {
		ent := s.ensure[len(s.ensure)-1]
		s.ensure = s.ensure[:len(s.ensure)-1]
		if err := s.runEnsure(ent); err != nil {
			return err
		}
	}
	return nil
}

// doReturn implements RETURN's normal mode: run any pending ensures,
// detach the frame's environment if it escaped as a closure, and
// transfer val to the caller's accumulator register (or, at the
// outermost frame, to the VM's result, signaling completion to
// runUntil).
func (s *State) doReturn(val value.Value) error {
	if err := s.runEnsuresToWatermark(s.curFrame().EIdx); err != nil {
		return err
	}
	f := s.curFrame()
	if f.Env != nil {
		f.Env.Detach()
	}
	acc := f.Acc

	if s.top == 0 {
		s.result = val
		s.top = -1
		return nil
	}

	s.popFrame()
	s.top--
	caller := s.curFrame()
	// caller.Proc is nil only for the root sentinel frame (never Run,
	// reached here via a bare Funcall/Yield): nothing left to resume,
	// and whichever enterFrame call pushed next will rebind irep/pc
	// before they're read again.
	if caller.Proc != nil {
		s.irep = caller.Proc.Body
		s.pc = caller.PC
	}
	switch {
	case acc >= 0:
		s.regs()[acc] = val
	case acc == accCapture:
		s.result = val
	}
	return nil
}

// doNonLocalReturn implements RETURN's break and return modes: both
// target the frame that created the currently executing block's
// environment, unwinding every intervening frame (and its ensures)
// first. A target whose frame has already returned raises
// LocalJumpError (§4.7, §8: "a lambda invoked after its creating
// method already returned").
func (s *State) doNonLocalReturn(val value.Value) error {
	cur := s.curFrame()
	if cur.Proc == nil {
		return s.raiseGoError(s.localJumpError("unexpected return"))
	}
	env := cur.Proc.Env
	if env == nil || !env.Live() {
		return s.raiseGoError(s.localJumpError("unexpected return"))
	}
	target := env.CIOffset
	if target < 0 || target >= len(s.ci) {
		return s.raiseGoError(s.localJumpError("unexpected return"))
	}
	for s.top > target {
		if err := s.runEnsuresToWatermark(s.curFrame().EIdx); err != nil {
			return err
		}
		f := s.curFrame()
		if f.Env != nil {
			f.Env.Detach()
		}
		s.popFrame()
		s.top--
	}
	if p := s.curFrame().Proc; p != nil {
		s.irep = p.Body
		s.pc = s.curFrame().PC
	}
	return s.doReturn(val)
}
