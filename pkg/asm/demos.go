package asm

import (
	"github.com/kristofer/ember/pkg/corelib"
	"github.com/kristofer/ember/pkg/opcode"
	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

// Demo names cmd/emberdisasm's run/disasm subcommands accept, since
// there is no source-file front end to load an arbitrary program from
// (the language's parser and compiler are out of scope; see spec.md's
// Non-goals).
const (
	DemoAdd       = "add"
	DemoCountdown = "countdown"
)

// DemoNames lists the demos in the order cmd/emberdisasm's help text
// should present them.
var DemoNames = []string{DemoAdd, DemoCountdown}

// BuildDemo assembles the named demo program against host h (used to
// intern any selectors/method names the program installs) and returns
// its entry Proc together with the receiver it should run against.
func BuildDemo(name string, h *corelib.Host) (*proc.Proc, value.Value, error) {
	switch name {
	case DemoAdd:
		return buildAddDemo(h)
	case DemoCountdown:
		return buildCountdownDemo(h)
	default:
		return nil, value.Value{}, unknownDemoError(name)
	}
}

type unknownDemoError string

func (e unknownDemoError) Error() string { return "asm: unknown demo " + string(e) }

// buildAddDemo assembles 2 + 3 via LOADI/ADD/RETURN, the same program
// vm_test.go's TestIntegerAdd exercises.
func buildAddDemo(h *corelib.Host) (*proc.Proc, value.Value, error) {
	b := New(3)
	b.LoadI(1, 2)
	b.LoadI(2, 3)
	b.Add(1, 1, 2)
	b.Return(1)
	irep, err := b.Assemble()
	if err != nil {
		return nil, value.Value{}, err
	}
	return &proc.Proc{Body: irep}, value.Nil, nil
}

// buildCountdownDemo assembles a tail-recursive countdown(n) method
// installed on Object, the same shape TestTailcallBoundedFrames
// exercises: it returns 0 after recursing n times with the frame stack
// held at a constant depth.
func buildCountdownDemo(h *corelib.Host) (*proc.Proc, value.Value, error) {
	countdown := h.Intern("countdown")

	b := New(6)
	b.Enter(opcode.EnterSpec{M1: 1})
	b.LoadI(2, 0)
	b.Eq(2, 1, 2)
	b.JmpNot(2, "recurse")
	b.Return(1)
	b.Label("recurse")
	b.SubI(2, 1, 1)
	b.Move(3, 0)
	b.Move(4, 2)
	b.LoadNil(5)
	b.TailCall(3, "countdown", 1)
	irep, err := b.Assemble()
	if err != nil {
		return nil, value.Value{}, err
	}

	p := &proc.Proc{Body: irep}
	objectClass, ok := h.ObjectClass().Heap().(*corelib.RClass)
	if !ok {
		return nil, value.Value{}, unknownDemoError("countdown: Object is not an *RClass")
	}
	objectClass.Methods[countdown] = p
	return p, h.ObjectClass(), nil
}

// DemoArgs returns the positional arguments BuildDemo's proc should be
// invoked with.
func DemoArgs(name string) []value.Value {
	switch name {
	case DemoCountdown:
		return []value.Value{value.Int(100000)}
	default:
		return nil
	}
}
