package asm

import (
	"strings"
	"testing"

	"github.com/kristofer/ember/pkg/corelib"
	"github.com/kristofer/ember/pkg/gc"
	"github.com/kristofer/ember/pkg/opcode"
	"github.com/kristofer/ember/pkg/vm"
)

func TestBuilderResolvesForwardLabel(t *testing.T) {
	b := New(3)
	b.LoadI(1, 0)
	b.JmpNot(1, "end")
	b.LoadI(2, 1)
	b.Label("end")
	b.Return(2)

	irep, err := b.Assemble()
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	jmpnot := irep.Instructions[1]
	if jmpnot.Op() != opcode.JMPNOT {
		t.Fatalf("instruction 1 = %s, want JMPNOT", jmpnot.Op())
	}
	if got, want := jmpnot.SBx(), 1; got != want {
		t.Fatalf("JMPNOT offset = %d, want %d (label index 3, relative to post-fetch pc 2)", got, want)
	}
}

func TestBuilderUndefinedLabel(t *testing.T) {
	b := New(2)
	b.Jmp("nowhere")
	b.Return(0)

	if _, err := b.Assemble(); err == nil {
		t.Fatalf("expected an error for an undefined label")
	}
}

func TestBuilderDuplicateLabel(t *testing.T) {
	b := New(2)
	b.Label("here")
	b.Label("here")
	b.Return(0)

	if _, err := b.Assemble(); err == nil {
		t.Fatalf("expected an error for a duplicate label")
	}
}

func TestAddDemoRuns(t *testing.T) {
	h := corelib.New()
	s := vm.New(h, gc.NoOp{})

	p, self, err := BuildDemo(DemoAdd, h)
	if err != nil {
		t.Fatalf("BuildDemo failed: %v", err)
	}
	result, err := s.Run(p, self, DemoArgs(DemoAdd))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.IsFixnum() || result.Int() != 5 {
		t.Fatalf("result = %v, want fixnum 5", result.GoString())
	}
}

func TestCountdownDemoRuns(t *testing.T) {
	h := corelib.New()
	s := vm.New(h, gc.NoOp{})

	p, self, err := BuildDemo(DemoCountdown, h)
	if err != nil {
		t.Fatalf("BuildDemo failed: %v", err)
	}
	result, err := s.Run(p, self, DemoArgs(DemoCountdown))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.IsFixnum() || result.Int() != 0 {
		t.Fatalf("result = %v, want fixnum 0", result.GoString())
	}
}

func TestDisassembleAddDemo(t *testing.T) {
	h := corelib.New()
	p, _, err := BuildDemo(DemoAdd, h)
	if err != nil {
		t.Fatalf("BuildDemo failed: %v", err)
	}
	var sb strings.Builder
	Disassemble(&sb, p.Body)
	out := sb.String()
	for _, want := range []string{"LOADI", "ADD", "RETURN"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestUnknownDemo(t *testing.T) {
	h := corelib.New()
	if _, _, err := BuildDemo("no-such-demo", h); err == nil {
		t.Fatalf("expected an error for an unknown demo")
	}
}
