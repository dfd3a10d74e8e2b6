package vm

import (
	"testing"

	"github.com/kristofer/ember/pkg/corelib"
	"github.com/kristofer/ember/pkg/gc"
	"github.com/kristofer/ember/pkg/opcode"
	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

func newTestState() (*State, *corelib.Host) {
	h := corelib.New()
	return New(h, gc.NoOp{}), h
}

// TestIntegerAdd exercises spec.md's §8 scenario 1: LOADI, LOADI, ADD,
// RETURN should compute 2+3 and hand 5 back to Run.
func TestIntegerAdd(t *testing.T) {
	s, _ := newTestState()
	irep := &proc.Irep{
		Instructions: []opcode.Instruction{
			opcode.MakeAsBx(opcode.LOADI, 1, 2),
			opcode.MakeAsBx(opcode.LOADI, 2, 3),
			opcode.MakeABC(opcode.ADD, 1, 1, 2),
			opcode.MakeABC(opcode.RETURN, 1, ReturnNormal, 0),
		},
		NRegs: 3,
	}
	p := &proc.Proc{Body: irep}

	result, err := s.Run(p, value.Nil, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !result.IsFixnum() || result.Int() != 5 {
		t.Fatalf("result = %v, want fixnum 5", result.GoString())
	}
}

// TestArityMismatch exercises §8 scenario 2: a strict ENTER with
// (m1=1,o=0,r=0,m2=0) invoked with 2 arguments raises ArgumentError.
func TestArityMismatch(t *testing.T) {
	s, h := newTestState()
	spec := opcode.EnterSpec{M1: 1}
	irep := &proc.Irep{
		Instructions: []opcode.Instruction{
			opcode.MakeAx(opcode.ENTER, opcode.PackEnter(spec)),
			opcode.MakeABC(opcode.RETURN, 1, ReturnNormal, 0),
		},
		NRegs: 3,
	}
	p := &proc.Proc{Body: irep}

	_, err := s.Run(p, value.Nil, []value.Value{value.Int(1), value.Int(2)})
	if err == nil {
		t.Fatalf("expected an ArgumentError, got nil")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	exc, ok := re.Exc.Heap().(*corelib.RException)
	if !ok || exc.Class.Name != "ArgumentError" {
		t.Fatalf("expected ArgumentError, got %v", h.ExceptionMessage(re.Exc))
	}
}

// TestRescue exercises §8 scenario 3: ONERR/RAISE/RESCUE hands the
// raised value back out through R(A), with no explicit JMP needed
// since RAISE never falls through to its own next instruction.
func TestRescue(t *testing.T) {
	s, h := newTestState()
	exc := h.NewException("RuntimeError", "boom")

	irep := &proc.Irep{
		Instructions: []opcode.Instruction{
			opcode.MakeABx(opcode.LOADL, 1, 0),                // 0: R1 = pool[0] (the exception)
			opcode.MakeAsBx(opcode.ONERR, 0, 1),               // 1: push pc+1 = 3 (RESCUE) onto the rescue stack
			opcode.MakeABC(opcode.RAISE, 1, 0, 0),             // 2: raise R1
			opcode.MakeABC(opcode.RESCUE, 2, 0, 0),            // 3: R2 = caught exception
			opcode.MakeABC(opcode.RETURN, 2, ReturnNormal, 0), // 4
		},
		NRegs: 3,
		Pool:  []value.Value{exc},
	}
	p := &proc.Proc{Body: irep}

	result, err := s.Run(p, value.Nil, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Heap() != exc.Heap() {
		t.Fatalf("result = %v, want the raised exception object", result.GoString())
	}
}

// TestEnsureOrder exercises §8 scenario 4: EPUSH body1; EPUSH body2;
// EPOP 2 runs body2 then body1, LIFO — observed here by having each
// ensure body append its own tag to a shared array.
func TestEnsureOrder(t *testing.T) {
	s, h := newTestState()
	arr := h.NewArray(nil)

	makeTagger := func(tag int64) *proc.Irep {
		return &proc.Irep{
			Instructions: []opcode.Instruction{
				opcode.MakeABx(opcode.LOADL, 0, 0),
				opcode.MakeAsBx(opcode.LOADI, 1, int(tag)),
				opcode.MakeABC(opcode.ARYPUSH, 0, 1, 0),
				opcode.MakeABC(opcode.RETURN, 0, ReturnNormal, 0),
			},
			NRegs: 2,
			Pool:  []value.Value{arr},
		}
	}
	child1 := makeTagger(1)
	child2 := makeTagger(2)

	irep := &proc.Irep{
		Instructions: []opcode.Instruction{
			opcode.MakeABx(opcode.EPUSH, 0, 0),
			opcode.MakeABx(opcode.EPUSH, 0, 1),
			opcode.MakeABC(opcode.EPOP, 2, 0, 0),
			opcode.MakeABC(opcode.RETURN, 0, ReturnNormal, 0),
		},
		NRegs:    1,
		Children: []*proc.Irep{child1, child2},
	}
	p := &proc.Proc{Body: irep}

	if _, err := s.Run(p, value.Nil, nil); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(s.ensure) != 0 {
		t.Fatalf("ensure stack not drained: %v", s.ensure)
	}
	got := arr.Heap().(*corelib.RArray).Elems
	if len(got) != 2 || got[0].Int() != 2 || got[1].Int() != 1 {
		t.Fatalf("ensure order = %v, want [2, 1] (LIFO)", got)
	}
}

// TestClosureUpvalue exercises §4.4: a LAMBDA with the capture flag set
// shares the creating frame's register window, so SETUPVAR from inside
// the invoked closure is visible in that window afterward, even though
// the creating frame has already returned and its environment detached
// to an owned copy.
func TestClosureUpvalue(t *testing.T) {
	s, _ := newTestState()

	// Child: R0 = 99; SETUPVAR lv=0 slot=1 <- R0; return.
	child := &proc.Irep{
		Instructions: []opcode.Instruction{
			opcode.MakeAsBx(opcode.LOADI, 0, 99),
			opcode.MakeABC(opcode.SETUPVAR, 0, 1, 0),
			opcode.MakeABC(opcode.RETURN, 0, ReturnNormal, 0),
		},
		NRegs: 1,
	}

	// Parent: R1 = 0; LAMBDA R2 over child, capturing this frame; hand
	// the closure back to the Go caller via RETURN.
	parent := &proc.Irep{
		Instructions: []opcode.Instruction{
			opcode.MakeAsBx(opcode.LOADI, 1, 0),
			opcode.MakeABC(opcode.LAMBDA, 2, 0, lambdaCapture),
			opcode.MakeABC(opcode.RETURN, 2, ReturnNormal, 0),
		},
		NRegs:    3,
		Children: []*proc.Irep{child},
	}
	p := &proc.Proc{Body: parent}

	closure, err := s.Run(p, value.Nil, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	env := closure.Heap().(*proc.Proc).Env
	if env.Live() {
		t.Fatalf("creating frame's environment should have detached on return")
	}
	if !env.Stack[1].IsFixnum() || env.Stack[1].Int() != 0 {
		t.Fatalf("R1 before invoking the closure = %v, want fixnum 0", env.Stack[1].GoString())
	}

	if _, err := s.Yield(closure, nil); err != nil {
		t.Fatalf("Yield error: %v", err)
	}
	if !env.Stack[1].IsFixnum() || env.Stack[1].Int() != 99 {
		t.Fatalf("R1 after invoking the closure = %v, want fixnum 99", env.Stack[1].GoString())
	}
}

// TestTailcallBoundedFrames exercises §8's tailcall scenario: a
// tail-recursive countdown keeps the frame stack at depth 1 no matter
// how many times it recurses.
//
// countdown(n): if n == 0 { return n } else { countdown(n - 1) }  [tailcall]
func TestTailcallBoundedFrames(t *testing.T) {
	s, h := newTestState()
	countdownSym := h.Intern("countdown")

	irep := &proc.Irep{
		Instructions: []opcode.Instruction{
			opcode.MakeAx(opcode.ENTER, opcode.PackEnter(opcode.EnterSpec{M1: 1})), // 0
			opcode.MakeAsBx(opcode.LOADI, 2, 0),                                    // 1: R2 = 0
			opcode.MakeABC(opcode.EQ, 2, 1, 2),                                     // 2: R2 = (R1 == R2)
			opcode.MakeAsBx(opcode.JMPNOT, 2, 1),                                   // 3: if !R2, pc += 1 -> 5 (else branch)
			opcode.MakeABC(opcode.RETURN, 1, ReturnNormal, 0),                      // 4: return R1 (n == 0)
			opcode.MakeABC(opcode.SUBI, 2, 1, 1),                                   // 5: R2 = R1 - 1
			opcode.MakeABC(opcode.MOVE, 3, 0, 0),                                   // 6: R3 = self
			opcode.MakeABC(opcode.MOVE, 4, 2, 0),                                   // 7: R4 = n - 1
			opcode.MakeABC(opcode.LOADNIL, 5, 0, 0),                                // 8: R5 = nil (no block)
			opcode.MakeABC(opcode.TAILCALL, 3, 0, 1),                              // 9: tailcall countdown(R4)
		},
		NRegs: 6,
		Syms:  []proc.Sym{proc.Sym(h.SymbolName(countdownSym))},
	}
	p := &proc.Proc{Body: irep}

	objectClass, ok := h.ObjectClass().Heap().(*corelib.RClass)
	if !ok {
		t.Fatalf("ObjectClass did not return an *RClass")
	}
	objectClass.Methods[countdownSym] = p

	result, err := s.Run(p, h.ObjectClass(), []value.Value{value.Int(100000)})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !result.IsFixnum() || result.Int() != 0 {
		t.Fatalf("result = %v, want fixnum 0", result.GoString())
	}
	if len(s.ci) > 2 {
		t.Fatalf("frame stack depth = %d, want a small bounded depth for a tail-recursive chain", len(s.ci))
	}
}
