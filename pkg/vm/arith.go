package vm

import (
	"github.com/kristofer/ember/pkg/opcode"
	"github.com/kristofer/ember/pkg/value"
)

// arithSelector maps an inline arithmetic/comparison opcode to the
// method name SEND would use for the same operator on a non-numeric
// receiver, the fast-path/fallback split every register mruby-style VM
// performs (§4.1, §4.3: "ADD/SUB/... are SEND in disguise for anything
// that isn't a Fixnum or a Float").
func arithSelector(op opcode.Opcode) string {
	switch op {
	case opcode.ADD:
		return "+"
	case opcode.SUB:
		return "-"
	case opcode.MUL:
		return "*"
	case opcode.DIV:
		return "/"
	case opcode.EQ:
		return "=="
	case opcode.LT:
		return "<"
	case opcode.LE:
		return "<="
	case opcode.GT:
		return ">"
	case opcode.GE:
		return ">="
	default:
		return "?"
	}
}

func isFastNumeric(v value.Value) bool { return v.IsFixnum() || v.IsFloat() }

// numericOp performs op directly on two Fixnum/Float operands,
// promoting to Float if either side is a Float, exactly mirroring the
// promotion rule a `+`/`-`/... method defined on the host's numeric
// classes would apply.
func numericOp(op opcode.Opcode, x, y value.Value) value.Value {
	bothInt := x.IsFixnum() && y.IsFixnum()
	if bothInt {
		switch op {
		case opcode.ADD:
			return value.Int(x.Int() + y.Int())
		case opcode.SUB:
			return value.Int(x.Int() - y.Int())
		case opcode.MUL:
			return value.Int(x.Int() * y.Int())
		case opcode.DIV:
			if y.Int() == 0 {
				return value.Nil
			}
			return value.Int(x.Int() / y.Int())
		case opcode.EQ:
			return value.Bool(x.Int() == y.Int())
		case opcode.LT:
			return value.Bool(x.Int() < y.Int())
		case opcode.LE:
			return value.Bool(x.Int() <= y.Int())
		case opcode.GT:
			return value.Bool(x.Int() > y.Int())
		case opcode.GE:
			return value.Bool(x.Int() >= y.Int())
		}
	}
	fx, fy := asFloat(x), asFloat(y)
	switch op {
	case opcode.ADD:
		return value.Float(fx + fy)
	case opcode.SUB:
		return value.Float(fx - fy)
	case opcode.MUL:
		return value.Float(fx * fy)
	case opcode.DIV:
		return value.Float(fx / fy)
	case opcode.EQ:
		return value.Bool(fx == fy)
	case opcode.LT:
		return value.Bool(fx < fy)
	case opcode.LE:
		return value.Bool(fx <= fy)
	case opcode.GT:
		return value.Bool(fx > fy)
	case opcode.GE:
		return value.Bool(fx >= fy)
	}
	return value.Nil
}

func asFloat(v value.Value) float64 {
	if v.IsFixnum() {
		return float64(v.Int())
	}
	return v.Float()
}

// execArith implements ADD/SUB/MUL/DIV/EQ/LT/LE/GT/GE A B C: a Fixnum
// or Float fast path inline, ADD additionally inlining string
// concatenation (a fresh string, unlike STRCAT's in-place append),
// falling back to an ordinary SEND of the matching operator method for
// anything else (§4.1).
func (s *State) execArith(op opcode.Opcode, ins opcode.Instruction) error {
	a, b, c := ins.A(), ins.B(), ins.C()
	r := s.regs()
	x, y := r[b], r[c]

	if isFastNumeric(x) && isFastNumeric(y) {
		r[a] = numericOp(op, x, y)
		return nil
	}
	if op == opcode.ADD {
		if xs, ok := s.Host.AsString(x); ok {
			if ys, ok := s.Host.AsString(y); ok {
				r[a] = s.Host.NewString(xs + ys)
				return nil
			}
		}
	}

	sym := s.Host.Intern(arithSelector(op))
	p, definedIn, err := s.resolveMethod(x, sym)
	if err != nil {
		return s.raiseGoError(err)
	}
	cs := callSpec{mid: sym, recv: x, args: []value.Value{y}, block: value.Nil, acc: a}
	return s.dispatch(cs, p, definedIn)
}

// execArithImm implements ADDI/SUBI A B C: R(A) = R(B) +/- C, an
// immediate-operand fast path for literal-constant arithmetic, falling
// back to SEND when R(B) is not itself a Fixnum.
func (s *State) execArithImm(isAdd bool, ins opcode.Instruction) error {
	a, b, c := ins.A(), ins.B(), ins.C()
	r := s.regs()
	x := r[b]
	if x.IsFixnum() {
		if isAdd {
			r[a] = value.Int(x.Int() + int64(c))
		} else {
			r[a] = value.Int(x.Int() - int64(c))
		}
		return nil
	}
	selector := "+"
	if !isAdd {
		selector = "-"
	}
	sym := s.Host.Intern(selector)
	p, definedIn, err := s.resolveMethod(x, sym)
	if err != nil {
		return s.raiseGoError(err)
	}
	cs := callSpec{mid: sym, recv: x, args: []value.Value{value.Int(int64(c))}, block: value.Nil, acc: a}
	return s.dispatch(cs, p, definedIn)
}

// execApost implements APOST A B C: split the array at R(A) into B
// leading elements, a rest array, and C trailing elements, writing the
// pieces back starting at R(A) — the multiple-assignment destructuring
// pattern `a, *b, c = arr` compiles to (§4.6's array counterpart).
func (s *State) execApost(ins opcode.Instruction) error {
	a, pre, post := ins.A(), ins.B(), ins.C()
	r := s.regs()
	head, rest, tail, err := s.Host.ArrayDestructure(r[a], pre, post)
	if err != nil {
		return s.raiseGoError(err)
	}
	pos := a
	for _, v := range head {
		r[pos] = v
		pos++
	}
	r[pos] = rest
	pos++
	for _, v := range tail {
		r[pos] = v
		pos++
	}
	return nil
}
