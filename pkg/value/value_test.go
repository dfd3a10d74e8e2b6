package value

import "testing"

type stubHeap struct{ kind string }

func (s *stubHeap) HeapKind() string { return s.kind }

func TestTruthiness(t *testing.T) {
	falsy := []Value{Nil, False}
	for _, v := range falsy {
		if v.IsTruthy() {
			t.Errorf("%v: expected falsy", v.GoString())
		}
	}

	truthy := []Value{True, Int(0), Float(0), Sym(0), Obj(&stubHeap{"x"})}
	for _, v := range truthy {
		if !v.IsTruthy() {
			t.Errorf("%v: expected truthy", v.GoString())
		}
	}
}

func TestConstructorsRoundTrip(t *testing.T) {
	if got := Int(42).Int(); got != 42 {
		t.Errorf("Int(42).Int() = %d, want 42", got)
	}
	if got := Float(3.5).Float(); got != 3.5 {
		t.Errorf("Float(3.5).Float() = %v, want 3.5", got)
	}
	if got := Sym(7).Sym(); got != 7 {
		t.Errorf("Sym(7).Sym() = %v, want 7", got)
	}
	h := &stubHeap{"thing"}
	v := Obj(h)
	if v.Heap() != h {
		t.Errorf("Obj(h).Heap() did not round-trip")
	}
}

func TestObjNilCollapsesToNil(t *testing.T) {
	v := Obj(nil)
	if !v.IsNil() {
		t.Errorf("Obj(nil) should collapse to Nil, got %v", v.GoString())
	}
}

func TestEqual(t *testing.T) {
	if !Int(5).Equal(Int(5)) {
		t.Errorf("Int(5) should equal Int(5)")
	}
	if Int(5).Equal(Int(6)) {
		t.Errorf("Int(5) should not equal Int(6)")
	}
	if Int(5).Equal(Float(5)) {
		t.Errorf("values of different tags should never be Equal")
	}
	h := &stubHeap{"a"}
	if !Obj(h).Equal(Obj(h)) {
		t.Errorf("Obj(h) should equal itself by pointer identity")
	}
	if Obj(&stubHeap{"a"}).Equal(Obj(&stubHeap{"a"})) {
		t.Errorf("distinct heap pointers should not be Equal")
	}
}

func TestBool(t *testing.T) {
	if !Bool(true).IsTrue() {
		t.Errorf("Bool(true) should be the True singleton")
	}
	if !Bool(false).IsFalse() {
		t.Errorf("Bool(false) should be the False singleton")
	}
}
