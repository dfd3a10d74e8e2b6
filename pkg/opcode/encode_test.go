package opcode

import "testing"

func TestABCRoundTrip(t *testing.T) {
	i := MakeABC(SEND, 3, 200, 5)
	if i.Op() != SEND {
		t.Fatalf("Op() = %v, want SEND", i.Op())
	}
	if i.A() != 3 || i.B() != 200 || i.C() != 5 {
		t.Fatalf("A/B/C = %d/%d/%d, want 3/200/5", i.A(), i.B(), i.C())
	}
}

func TestABxRoundTrip(t *testing.T) {
	i := MakeABx(LOADL, 1, 60000)
	if i.Op() != LOADL {
		t.Fatalf("Op() = %v, want LOADL", i.Op())
	}
	if i.A() != 1 || i.Bx() != 60000 {
		t.Fatalf("A/Bx = %d/%d, want 1/60000", i.A(), i.Bx())
	}
}

func TestSBxRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 1, -1, 1000, -1000, 32767, -32767} {
		i := MakeAsBx(JMPIF, 2, offset)
		if got := i.SBx(); got != offset {
			t.Errorf("SBx round trip for %d: got %d", offset, got)
		}
	}
}

func TestSAxRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 5, -5, 1 << 20, -(1 << 20)} {
		i := MakeSAx(JMP, offset)
		if got := i.SAx(); got != offset {
			t.Errorf("SAx round trip for %d: got %d", offset, got)
		}
	}
}

func TestEnterSpecRoundTrip(t *testing.T) {
	specs := []EnterSpec{
		{M1: 1},
		{M1: 2, O: 3, R: true, M2: 1},
		{M1: 0, O: 0, R: true, M2: 0, B: true},
		{M1: 31, O: 31, R: true, M2: 31, K: 31, KD: true, B: true},
	}
	for _, want := range specs {
		got := UnpackEnter(PackEnter(want))
		if got != want {
			t.Errorf("EnterSpec round trip: want %+v, got %+v", want, got)
		}
	}
}

func TestEnterLen(t *testing.T) {
	e := EnterSpec{M1: 1, O: 2, R: true, M2: 1}
	if got := e.Len(); got != 5 {
		t.Errorf("Len() = %d, want 5", got)
	}
}

func TestOpcodeStringKnown(t *testing.T) {
	if SEND.String() != "SEND" {
		t.Errorf("SEND.String() = %q, want SEND", SEND.String())
	}
	if RETURN.String() != "RETURN" {
		t.Errorf("RETURN.String() = %q, want RETURN", RETURN.String())
	}
}

func TestOpcodeStringUnknown(t *testing.T) {
	if got := Opcode(255).String(); got != "UNKNOWN" {
		t.Errorf("Opcode(255).String() = %q, want UNKNOWN", got)
	}
}
