// Kernel-level methods every corelib Host installs on Object: the
// arithmetic/comparison operators ADD/SUB/.../GE's fast path falls back
// to via SEND when an operand isn't a Fixnum/Float, and the handful of
// Object/Class methods (new, class, to_s) a running program needs to
// exist at all before its own method definitions take over.
package corelib

import (
	"fmt"

	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

func (h *Host) installKernel() {
	obj := h.object
	bind := func(name string, fn proc.Native) {
		obj.Methods[h.Intern(name)] = native(fn)
	}

	bind("+", h.kernelAdd)
	bind("-", h.kernelSub)
	bind("*", h.kernelMul)
	bind("/", h.kernelDiv)
	bind("==", h.kernelEq)
	bind("<", h.kernelLt)
	bind("<=", h.kernelLe)
	bind(">", h.kernelGt)
	bind(">=", h.kernelGe)

	bind("new", h.kernelNew)
	bind("class", h.kernelClass)
	bind("to_s", h.kernelToS)
	bind("inspect", h.kernelToS)

	bind("push", h.kernelArrayPush)
	bind("[]", h.kernelIndexGet)
	bind("[]=", h.kernelIndexSet)
	bind("length", h.kernelLength)
	bind("size", h.kernelLength)
}

func (h *Host) arith(selector string, self value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("%s: expected 1 argument, got %d", selector, len(args))
	}
	other := args[0]

	if s, ok := str(self); ok {
		switch selector {
		case "+":
			o, ok := str(other)
			if !ok {
				return value.Nil, fmt.Errorf("no implicit conversion into String")
			}
			return h.NewString(s + o), nil
		case "==":
			o, ok := str(other)
			return value.Bool(ok && o == s), nil
		}
	}

	if !self.IsFixnum() && !self.IsFloat() {
		return value.Nil, fmt.Errorf("undefined method `%s' for %s", selector, self.GoString())
	}
	if !other.IsFixnum() && !other.IsFloat() {
		return value.Nil, fmt.Errorf("%s: %s can't be coerced", selector, other.GoString())
	}

	bothInt := self.IsFixnum() && other.IsFixnum()
	if bothInt {
		a, b := self.Int(), other.Int()
		switch selector {
		case "+":
			return value.Int(a + b), nil
		case "-":
			return value.Int(a - b), nil
		case "*":
			return value.Int(a * b), nil
		case "/":
			if b == 0 {
				return value.Nil, fmt.Errorf("divided by 0")
			}
			return value.Int(a / b), nil
		case "==":
			return value.Bool(a == b), nil
		case "<":
			return value.Bool(a < b), nil
		case "<=":
			return value.Bool(a <= b), nil
		case ">":
			return value.Bool(a > b), nil
		case ">=":
			return value.Bool(a >= b), nil
		}
	}
	af, bf := asFloatVal(self), asFloatVal(other)
	switch selector {
	case "+":
		return value.Float(af + bf), nil
	case "-":
		return value.Float(af - bf), nil
	case "*":
		return value.Float(af * bf), nil
	case "/":
		return value.Float(af / bf), nil
	case "==":
		return value.Bool(af == bf), nil
	case "<":
		return value.Bool(af < bf), nil
	case "<=":
		return value.Bool(af <= bf), nil
	case ">":
		return value.Bool(af > bf), nil
	case ">=":
		return value.Bool(af >= bf), nil
	}
	return value.Nil, fmt.Errorf("unknown operator %s", selector)
}

func asFloatVal(v value.Value) float64 {
	if v.IsFixnum() {
		return float64(v.Int())
	}
	return v.Float()
}

func (h *Host) kernelAdd(state any, self value.Value, args []value.Value) (value.Value, error) {
	return h.arith("+", self, args)
}
func (h *Host) kernelSub(state any, self value.Value, args []value.Value) (value.Value, error) {
	return h.arith("-", self, args)
}
func (h *Host) kernelMul(state any, self value.Value, args []value.Value) (value.Value, error) {
	return h.arith("*", self, args)
}
func (h *Host) kernelDiv(state any, self value.Value, args []value.Value) (value.Value, error) {
	return h.arith("/", self, args)
}
func (h *Host) kernelEq(state any, self value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("==: expected 1 argument, got %d", len(args))
	}
	if self.IsFixnum() || self.IsFloat() || func() bool { _, ok := str(self); return ok }() {
		return h.arith("==", self, args)
	}
	return value.Bool(self.Equal(args[0])), nil
}
func (h *Host) kernelLt(state any, self value.Value, args []value.Value) (value.Value, error) {
	return h.arith("<", self, args)
}
func (h *Host) kernelLe(state any, self value.Value, args []value.Value) (value.Value, error) {
	return h.arith("<=", self, args)
}
func (h *Host) kernelGt(state any, self value.Value, args []value.Value) (value.Value, error) {
	return h.arith(">", self, args)
}
func (h *Host) kernelGe(state any, self value.Value, args []value.Value) (value.Value, error) {
	return h.arith(">=", self, args)
}

// kernelNew implements the "new" every class inherits from Object:
// self here is the class value being sent "new", since corelib gives
// classes no metaclass tower of their own (ClassOf(aClass) == Object).
func (h *Host) kernelNew(state any, self value.Value, args []value.Value) (value.Value, error) {
	inst, err := h.NewInstance(self)
	if err != nil {
		return value.Nil, err
	}
	if c, ok := self.Heap().(*RClass); ok {
		if initSym, ok := h.symIDs["initialize"]; ok {
			if m, ok := c.Methods[initSym]; ok && m != nil {
				if s, ok := state.(funcaller); ok {
					if _, err := s.Funcall(inst, initSym, args); err != nil {
						return value.Nil, err
					}
				}
			}
		}
	}
	return inst, nil
}

// funcaller is the slice of *vm.State's public API kernelNew needs;
// declared locally to avoid an import cycle back to package vm.
type funcaller interface {
	Funcall(recv value.Value, mid value.Symbol, args []value.Value) (value.Value, error)
}

func (h *Host) kernelClass(state any, self value.Value, args []value.Value) (value.Value, error) {
	return h.ClassOf(self), nil
}

func (h *Host) kernelToS(state any, self value.Value, args []value.Value) (value.Value, error) {
	if s, ok := str(self); ok {
		return h.NewString(s), nil
	}
	return h.NewString(self.GoString()), nil
}

func (h *Host) kernelArrayPush(state any, self value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("push: expected 1 argument")
	}
	return h.ArrayPush(self, args[0])
}

func (h *Host) kernelIndexGet(state any, self value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("[]: expected 1 argument")
	}
	if _, ok := self.Heap().(*RHash); ok {
		return h.HashGet(self, args[0]), nil
	}
	if !args[0].IsFixnum() {
		return value.Nil, fmt.Errorf("[]: index must be a Fixnum")
	}
	return h.ArrayRef(self, int(args[0].Int()))
}

func (h *Host) kernelIndexSet(state any, self value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Nil, fmt.Errorf("[]=: expected 2 arguments")
	}
	if _, ok := self.Heap().(*RHash); ok {
		h.HashSet(self, args[0], args[1])
		return args[1], nil
	}
	if !args[0].IsFixnum() {
		return value.Nil, fmt.Errorf("[]=: index must be a Fixnum")
	}
	if err := h.ArraySet(self, int(args[0].Int()), args[1]); err != nil {
		return value.Nil, err
	}
	return args[1], nil
}

func (h *Host) kernelLength(state any, self value.Value, args []value.Value) (value.Value, error) {
	if s, ok := str(self); ok {
		return value.Int(int64(len(s))), nil
	}
	if _, ok := self.Heap().(*RArray); ok {
		n, err := h.ArrayLen(self)
		if err != nil {
			return value.Nil, err
		}
		return value.Int(int64(n)), nil
	}
	if hm, ok := self.Heap().(*RHash); ok {
		return value.Int(int64(len(hm.Keys))), nil
	}
	return value.Nil, fmt.Errorf("length: unsupported receiver")
}
