package vm

import (
	"github.com/kristofer/ember/pkg/opcode"
	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

// makeClosure builds a Proc over child that captures the current
// frame's register window as its environment, creating that
// environment (live, aliasing the frame) the first time any closure
// captures it (§4.4). A second LAMBDA or EPUSH in the same frame
// reuses the same Env, so two closures created in one method share
// upvalue mutations exactly as two blocks in the same Ruby method do.
func (s *State) makeClosure(child *proc.Irep) *proc.Proc {
	cur := s.curFrame()
	if cur.Env == nil {
		var parent *proc.Env
		if cur.Proc != nil {
			parent = cur.Proc.Env
		}
		cur.Env = &proc.Env{
			Stack:    s.stack[cur.StackIdx : cur.StackIdx+cur.NRegs],
			CIOffset: s.top,
			Parent:   parent,
			MID:      proc.Sym(s.Host.SymbolName(cur.MID)),
		}
	}
	return &proc.Proc{Body: child, TargetClass: cur.TargetClass, Env: cur.Env}
}

// lambdaCapture and lambdaStrict decode LAMBDA's C operand: bit 0
// requests a closure captured over the current frame, bit 1 sets the
// procedure's Strict (method-style) flag. ENTER does not consult
// Strict: every procedure's arity is checked the same way.
const (
	lambdaCapture = 1 << 0
	lambdaStrict  = 1 << 1
)

// execLambda implements LAMBDA A B C: materialize a procedure over
// child irep B into R(A). If C's capture bit is set the procedure
// closes over the current frame's registers (a block or a closure
// created with `->`/`lambda`); otherwise it is a plain, environment-
// free procedure (§4.4).
func (s *State) execLambda(ins opcode.Instruction) error {
	child := s.irep.Children[ins.B()]
	flags := ins.C()
	var p *proc.Proc
	if flags&lambdaCapture != 0 {
		p = s.makeClosure(child)
	} else {
		p = &proc.Proc{Body: child, TargetClass: s.curFrame().TargetClass}
	}
	p.Strict = flags&lambdaStrict != 0
	s.regs()[ins.A()] = value.Obj(p)
	return nil
}

// execClass implements CLASS A B and MODULE A B: define a class or
// module named by Classes[B] nested under R(A) (outer scope), with
// R(A+1) as the superclass for CLASS (ignored for MODULE), storing the
// resulting class/module object back into R(A).
func (s *State) execClass(ins opcode.Instruction, isModule bool) error {
	a := ins.A()
	r := s.regs()
	spec := s.irep.Classes[ins.B()]
	sym := s.Host.Intern(string(spec.Name))
	outer := r[a]
	if outer.IsNil() {
		outer = s.curFrame().TargetClass
	}

	var result value.Value
	var err error
	if isModule {
		result, err = s.Host.DefineModule(sym, outer)
	} else {
		super := r[a+1]
		result, err = s.Host.DefineClass(sym, outer, super)
	}
	if err != nil {
		return s.raiseGoError(err)
	}
	r[a] = result
	return nil
}

// execExec implements EXEC A Bx: run child irep Bx as a class/module
// body, with R(A) (the class or module just opened) as both self and
// target_class. It pushes an ordinary frame and lets the dispatch loop
// continue — ordinary RETURN handling closes the body out — discarding
// whatever value the body's implicit return produces.
func (s *State) execExec(ins opcode.Instruction) error {
	child := s.irep.Children[ins.Bx()]
	self := s.regs()[ins.A()]
	p := &proc.Proc{Body: child, TargetClass: self}
	cs := callSpec{recv: self, block: value.Nil, acc: accDiscard}
	return s.dispatch(cs, p, self)
}

// defineMethod implements METHOD A B: install the procedure value at
// R(A+1) as sym on class (or module) R(A).
func (s *State) defineMethod(class value.Value, sym value.Symbol, procVal value.Value) error {
	p, ok := procVal.Heap().(*proc.Proc)
	if !ok {
		return s.runtimeErrorf("METHOD target is not a procedure")
	}
	if err := s.Host.DefineMethod(class, sym, p); err != nil {
		return s.raiseGoError(err)
	}
	return nil
}
