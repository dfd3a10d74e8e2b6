package vm

import (
	"github.com/kristofer/ember/pkg/opcode"
	"github.com/kristofer/ember/pkg/value"
)

// runUntil drives the fetch/decode/execute loop while the current frame
// index is at or above floor, returning once the frame at floor has
// returned (or a RAISE unwound past it) or an unrecoverable error
// occurs. Run, Funcall,
// Yield, and the ensure-body trampoline all funnel through this one
// loop so there is exactly one place instructions are dispatched.
func (s *State) runUntil(floor int) error {
	for s.top >= floor {
		idx := s.GC.ArenaSave()
		err := s.step()
		s.GC.ArenaRestore(idx)
		if err != nil {
			return err
		}
	}
	return nil
}

// step fetches, decodes, and executes exactly one instruction.
func (s *State) step() error {
	if s.pc >= len(s.irep.Instructions) {
		return s.runtimeErrorf("instruction pointer ran off the end of the procedure body")
	}
	ins := s.irep.Instructions[s.pc]
	op := ins.Op()
	if s.cfg.Trace != nil && s.cfg.Trace.WantsEveryOp() {
		s.cfg.Trace.OnOp(s.top, s.pc, op)
	}
	s.pc++

	switch op {
	case opcode.NOP:
		// no-op

	case opcode.MOVE:
		r := s.regs()
		r[ins.A()] = r[ins.B()]

	case opcode.LOADL:
		s.regs()[ins.A()] = s.irep.Pool[ins.Bx()]

	case opcode.LOADI:
		s.regs()[ins.A()] = value.Int(int64(ins.SBx()))

	case opcode.LOADSYM:
		sym := s.Host.Intern(string(s.irep.Syms[ins.Bx()]))
		s.regs()[ins.A()] = value.Sym(sym)

	case opcode.LOADNIL:
		s.regs()[ins.A()] = value.Nil

	case opcode.LOADSELF:
		s.regs()[ins.A()] = s.regs()[0]

	case opcode.LOADT:
		s.regs()[ins.A()] = value.True

	case opcode.LOADF:
		s.regs()[ins.A()] = value.False

	case opcode.GETGLOBAL:
		sym := s.sym(ins.Bx())
		s.regs()[ins.A()] = s.Host.Global(sym)

	case opcode.SETGLOBAL:
		sym := s.sym(ins.Bx())
		s.Host.SetGlobal(sym, s.regs()[ins.A()])

	case opcode.GETSPECIAL:
		sym := s.sym(ins.Bx())
		s.regs()[ins.A()] = s.Host.Special(sym)

	case opcode.SETSPECIAL:
		sym := s.sym(ins.Bx())
		s.Host.SetSpecial(sym, s.regs()[ins.A()])

	case opcode.GETIV:
		sym := s.sym(ins.Bx())
		s.regs()[ins.A()] = s.Host.IVar(s.regs()[0], sym)

	case opcode.SETIV:
		sym := s.sym(ins.Bx())
		s.Host.SetIVar(s.regs()[0], sym, s.regs()[ins.A()])

	case opcode.GETCV:
		sym := s.sym(ins.Bx())
		s.regs()[ins.A()] = s.Host.CVar(s.curFrame().TargetClass, sym)

	case opcode.SETCV:
		sym := s.sym(ins.Bx())
		s.Host.SetCVar(s.curFrame().TargetClass, sym, s.regs()[ins.A()])

	case opcode.GETCONST:
		sym := s.sym(ins.Bx())
		v, ok := s.Host.Const(s.curFrame().TargetClass, sym)
		if !ok {
			name := s.Host.SymbolName(sym)
			return s.raiseGoError(s.runtimeErrorf("uninitialized constant %s", name))
		}
		s.regs()[ins.A()] = v

	case opcode.SETCONST:
		sym := s.sym(ins.Bx())
		s.Host.SetConst(s.curFrame().TargetClass, sym, s.regs()[ins.A()])

	case opcode.GETMCNST:
		sym := s.sym(ins.Bx())
		mod := s.regs()[ins.A()]
		v, ok := s.Host.MConst(mod, sym)
		if !ok {
			name := s.Host.SymbolName(sym)
			return s.raiseGoError(s.runtimeErrorf("uninitialized constant %s", name))
		}
		s.regs()[ins.A()] = v

	case opcode.SETMCNST:
		sym := s.sym(ins.Bx())
		r := s.regs()
		mod := r[ins.A()]
		s.Host.SetMConst(mod, sym, r[ins.A()+1])

	case opcode.GETUPVAR:
		r := s.regs()
		env := s.curFrame().Proc.Env
		v, ok := env.At(ins.C(), ins.B())
		if !ok {
			v = value.Nil
		}
		r[ins.A()] = v

	case opcode.SETUPVAR:
		env := s.curFrame().Proc.Env
		v := s.regs()[ins.A()]
		env.Set(ins.C(), ins.B(), v)
		s.GC.WriteBarrier(value.Obj(env), v)

	case opcode.JMP:
		s.pc += int(ins.SBx())

	case opcode.JMPIF:
		if s.regs()[ins.A()].IsTruthy() {
			s.pc += int(ins.SBx())
		}

	case opcode.JMPNOT:
		if !s.regs()[ins.A()].IsTruthy() {
			s.pc += int(ins.SBx())
		}

	case opcode.ONERR:
		s.rescue = append(s.rescue, s.pc+int(ins.SBx()))

	case opcode.RESCUE:
		r := s.regs()
		r[ins.A()] = s.exc
		s.exc = value.Nil

	case opcode.POPERR:
		n := int(ins.A())
		if n > len(s.rescue) {
			n = len(s.rescue)
		}
		s.rescue = s.rescue[:len(s.rescue)-n]

	case opcode.RAISE:
		return s.raise(s.regs()[ins.A()])

	case opcode.EPUSH:
		child := s.irep.Children[ins.Bx()]
		p := s.makeClosure(child)
		s.ensure = append(s.ensure, ensureEntry{p: p, frame: s.top})

	case opcode.EPOP:
		n := int(ins.A())
		for i := 0; i < n && len(s.ensure) > s.curFrame().EIdx; i++ {
			ent := s.ensure[len(s.ensure)-1]
			s.ensure = s.ensure[:len(s.ensure)-1]
			if err := s.runEnsure(ent); err != nil {
				return err
			}
		}

	case opcode.SEND, opcode.FSEND, opcode.VSEND:
		return s.execSend(ins, false)

	case opcode.SUPER:
		return s.execSend(ins, true)

	case opcode.TAILCALL:
		return s.execTailcall(ins)

	case opcode.CALL:
		return s.execCall(ins)

	case opcode.ARGARY:
		return s.execArgary(ins)

	case opcode.ENTER:
		return s.execEnter(ins)

	case opcode.KARG:
		return s.execKarg(ins)

	case opcode.KDICT:
		return s.execKdict(ins)

	case opcode.RETURN:
		return s.execReturn(ins)

	case opcode.BLKPUSH:
		return s.execBlkpush(ins)

	case opcode.ADD, opcode.SUB, opcode.MUL, opcode.DIV,
		opcode.EQ, opcode.LT, opcode.LE, opcode.GT, opcode.GE:
		return s.execArith(op, ins)

	case opcode.ADDI:
		return s.execArithImm(true, ins)

	case opcode.SUBI:
		return s.execArithImm(false, ins)

	case opcode.ARRAY:
		r := s.regs()
		elems := make([]value.Value, ins.C())
		copy(elems, r[ins.B():int(ins.B())+int(ins.C())])
		r[ins.A()] = s.Host.NewArray(elems)

	case opcode.ARYCAT:
		r := s.regs()
		out, err := s.Host.ArrayConcat(r[ins.A()], r[ins.B()])
		if err != nil {
			return s.raiseGoError(err)
		}
		r[ins.A()] = out

	case opcode.ARYPUSH:
		r := s.regs()
		out, err := s.Host.ArrayPush(r[ins.A()], r[ins.B()])
		if err != nil {
			return s.raiseGoError(err)
		}
		r[ins.A()] = out

	case opcode.AREF:
		r := s.regs()
		out, err := s.Host.ArrayRef(r[ins.B()], int(ins.C()))
		if err != nil {
			return s.raiseGoError(err)
		}
		r[ins.A()] = out

	case opcode.ASET:
		r := s.regs()
		if err := s.Host.ArraySet(r[ins.B()], int(ins.C()), r[ins.A()]); err != nil {
			return s.raiseGoError(err)
		}

	case opcode.APOST:
		return s.execApost(ins)

	case opcode.STRING:
		s.regs()[ins.A()] = s.Host.NewString(s.irep.Strings[ins.Bx()])

	case opcode.STRCAT:
		r := s.regs()
		out, err := s.Host.StringConcat(r[ins.A()], r[ins.B()])
		if err != nil {
			return s.raiseGoError(err)
		}
		r[ins.A()] = out

	case opcode.HASH:
		r := s.regs()
		n := int(ins.C()) * 2
		pairs := make([]value.Value, n)
		copy(pairs, r[ins.B():int(ins.B())+n])
		r[ins.A()] = s.Host.NewHash(pairs)

	case opcode.RANGE:
		r := s.regs()
		excl := ins.C() != 0
		r[ins.A()] = s.Host.NewRange(r[ins.B()], r[int(ins.B())+1], excl)

	case opcode.LAMBDA:
		return s.execLambda(ins)

	case opcode.OCLASS:
		s.regs()[ins.A()] = s.Host.ObjectClass()

	case opcode.CLASS:
		return s.execClass(ins, false)

	case opcode.MODULE:
		return s.execClass(ins, true)

	case opcode.EXEC:
		return s.execExec(ins)

	case opcode.METHOD:
		r := s.regs()
		sym := s.sym(ins.B())
		return s.defineMethod(r[ins.A()], sym, r[ins.A()+1])

	case opcode.SCLASS:
		r := s.regs()
		sc, err := s.Host.SingletonClass(r[ins.B()])
		if err != nil {
			return s.raiseGoError(err)
		}
		r[ins.A()] = sc

	case opcode.TCLASS:
		s.regs()[ins.A()] = s.curFrame().TargetClass

	case opcode.DEBUG:
		if s.cfg.Trace != nil {
			s.cfg.Trace.OnDebug(s.top, s.pc)
		}

	case opcode.ERR:
		msg := s.irep.Strings[ins.A()]
		return s.raiseGoError(s.runtimeErrorf("%s", msg))

	case opcode.STOP:
		s.pc = len(s.irep.Instructions)
		s.top = -1 // signal outermost completion to runUntil(0)

	default:
		return s.runtimeErrorf("unimplemented opcode %s", op)
	}
	return nil
}

// sym resolves a Bx symbol-table index through the host's interner,
// the pattern every GET*/SET* opcode touching named storage shares.
func (s *State) sym(idx int) value.Symbol {
	return s.Host.Intern(string(s.irep.Syms[idx]))
}
