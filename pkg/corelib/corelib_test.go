package corelib

import (
	"testing"

	"github.com/kristofer/ember/pkg/value"
)

func TestInternIsStable(t *testing.T) {
	h := New()
	a := h.Intern("foo")
	b := h.Intern("foo")
	if a != b {
		t.Fatalf("Intern(%q) returned different symbols: %v, %v", "foo", a, b)
	}
	if got := h.SymbolName(a); got != "foo" {
		t.Fatalf("SymbolName(%v) = %q, want %q", a, got, "foo")
	}
}

func TestSymbolNameUnknown(t *testing.T) {
	h := New()
	if got := h.SymbolName(value.Symbol(99999)); got == "" {
		t.Fatalf("SymbolName of an unknown symbol should not be empty")
	}
}

func TestDefineClassInheritsObjectByDefault(t *testing.T) {
	h := New()
	sym := h.Intern("Widget")
	cls, err := h.DefineClass(sym, value.Nil, value.Nil)
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	super := h.Superclass(cls)
	if super.Heap().(*RClass).Name != "Object" {
		t.Fatalf("Widget's superclass = %v, want Object", super.GoString())
	}
}

func TestMethodSearchWalksSuperclassChain(t *testing.T) {
	h := New()
	baseSym := h.Intern("Base")
	childSym := h.Intern("Child")
	base, err := h.DefineClass(baseSym, value.Nil, value.Nil)
	if err != nil {
		t.Fatalf("DefineClass(Base) failed: %v", err)
	}
	child, err := h.DefineClass(childSym, value.Nil, base)
	if err != nil {
		t.Fatalf("DefineClass(Child) failed: %v", err)
	}

	greet := h.Intern("greet")
	if err := h.DefineMethod(base, greet, nil); err != nil {
		t.Fatalf("DefineMethod failed: %v", err)
	}

	_, definedIn, ok := h.MethodSearch(child, greet)
	if !ok {
		t.Fatalf("MethodSearch did not find greet via the superclass chain")
	}
	if definedIn.Heap().(*RClass).Name != "Base" {
		t.Fatalf("method resolved in %v, want Base", definedIn.GoString())
	}

	if _, _, ok := h.MethodSearch(child, h.Intern("nope")); ok {
		t.Fatalf("MethodSearch found a method that was never defined")
	}
}

func TestIVarsPerInstance(t *testing.T) {
	h := New()
	sym := h.Intern("Point")
	cls, _ := h.DefineClass(sym, value.Nil, value.Nil)
	a, err := h.NewInstance(cls)
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}
	b, err := h.NewInstance(cls)
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}

	x := h.Intern("@x")
	h.SetIVar(a, x, value.Int(1))
	h.SetIVar(b, x, value.Int(2))

	if got := h.IVar(a, x); got.Int() != 1 {
		t.Fatalf("a.@x = %v, want 1", got.GoString())
	}
	if got := h.IVar(b, x); got.Int() != 2 {
		t.Fatalf("b.@x = %v, want 2", got.GoString())
	}
}

func TestArrayPushRefAndDestructure(t *testing.T) {
	h := New()
	arr := h.NewArray([]value.Value{value.Int(1), value.Int(2)})

	if _, err := h.ArrayPush(arr, value.Int(3)); err != nil {
		t.Fatalf("ArrayPush failed: %v", err)
	}
	v, err := h.ArrayRef(arr, -1)
	if err != nil {
		t.Fatalf("ArrayRef failed: %v", err)
	}
	if v.Int() != 3 {
		t.Fatalf("arr[-1] = %v, want 3", v.GoString())
	}

	head, rest, tail, err := h.ArrayDestructure(arr, 1, 1)
	if err != nil {
		t.Fatalf("ArrayDestructure failed: %v", err)
	}
	if len(head) != 1 || head[0].Int() != 1 {
		t.Fatalf("head = %v, want [1]", head)
	}
	if len(tail) != 1 || tail[0].Int() != 3 {
		t.Fatalf("tail = %v, want [3]", tail)
	}
	restElems, _ := h.AsArray(rest)
	if len(restElems) != 1 || restElems[0].Int() != 2 {
		t.Fatalf("rest = %v, want [2]", restElems)
	}
}

func TestHashGetSetOverwritesExistingKey(t *testing.T) {
	h := New()
	hv := h.NewHash(nil)
	key := value.Sym(h.Intern("k"))

	h.HashSet(hv, key, value.Int(1))
	h.HashSet(hv, key, value.Int(2))

	hm := hv.Heap().(*RHash)
	if len(hm.Keys) != 1 {
		t.Fatalf("HashSet with a repeated key should overwrite, got %d keys", len(hm.Keys))
	}
	if got := h.HashGet(hv, key); got.Int() != 2 {
		t.Fatalf("HashGet = %v, want 2", got.GoString())
	}
}

func TestNewExceptionUnknownClassFallsBackToRuntimeError(t *testing.T) {
	h := New()
	exc := h.NewException("NoSuchError", "boom")
	e := exc.Heap().(*RException)
	if e.Class.Name != "RuntimeError" {
		t.Fatalf("unknown exception class = %v, want RuntimeError", e.Class.Name)
	}
	if h.ExceptionMessage(exc) != "boom" {
		t.Fatalf("ExceptionMessage = %q, want %q", h.ExceptionMessage(exc), "boom")
	}
}

func TestClassOfPrimitivesAndHeapTypes(t *testing.T) {
	h := New()
	cases := []struct {
		v    value.Value
		want string
	}{
		{value.Nil, "NilClass"},
		{value.Int(1), "Fixnum"},
		{h.NewString("x"), "String"},
		{h.NewArray(nil), "Array"},
	}
	for _, c := range cases {
		got := h.ClassOf(c.v).Heap().(*RClass).Name
		if got != c.want {
			t.Errorf("ClassOf(%v) = %s, want %s", c.v.GoString(), got, c.want)
		}
	}
}
