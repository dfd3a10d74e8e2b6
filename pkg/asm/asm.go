// Package asm is a small builder that turns a linear, labeled
// instruction list into a *proc.Irep: "program description in, flat
// instruction stream + constant pool out", the same concern the
// teacher's pkg/compiler served (AST nodes in, stack bytecode out),
// repurposed here to the register ISA and with a program description
// that is already flat, since producing register code from a parsed
// AST is the real compiler's job and stays out of scope.
//
// It exists to build test fixtures and the cmd/emberdisasm demo
// programs without hand-computing jump targets by hand each time: a
// Builder lets a caller mark a Label and later reference it from Jmp/
// JmpIf/JmpNot/OnErr, and Assemble resolves every reference once the
// full instruction list is known, mirroring how the teacher's compiler
// backpatches jump targets after a whole statement has been emitted.
package asm

import (
	"fmt"

	"github.com/kristofer/ember/pkg/opcode"
	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

// patchKind distinguishes which instruction field a pending label
// reference needs to be written into once the label resolves.
type patchKind int

const (
	patchSBx patchKind = iota // JMP/JMPIF/JMPNOT/ONERR's AsBx-shaped target
)

type pendingPatch struct {
	index int
	label string
	kind  patchKind
	a     int // the instruction's own A operand, preserved across the rewrite
}

// Builder assembles one procedure body. A fresh Builder always starts
// with register 0 implicitly reserved for self, matching every
// Irep.NRegs the dispatch engine expects (§3, §4.2).
type Builder struct {
	nregs    int
	instrs   []opcode.Instruction
	labels   map[string]int
	pending  []pendingPatch
	pool     []value.Value
	strings  []string
	syms     []proc.Sym
	classes  []proc.ClassSpec
	children []*proc.Irep
	err      error
}

// New starts a Builder for a procedure whose register window needs
// nregs slots (including R(0) = self).
func New(nregs int) *Builder {
	return &Builder{nregs: nregs, labels: make(map[string]int)}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Label marks the position of the next instruction to be emitted as
// name, resolvable by any earlier or later Jmp/JmpIf/JmpNot/OnErr call
// that references it.
func (b *Builder) Label(name string) *Builder {
	if _, exists := b.labels[name]; exists {
		return b.fail(fmt.Errorf("asm: label %q defined twice", name))
	}
	b.labels[name] = len(b.instrs)
	return b
}

func (b *Builder) emit(ins opcode.Instruction) int {
	b.instrs = append(b.instrs, ins)
	return len(b.instrs) - 1
}

// Raw appends an already-encoded instruction verbatim, the escape
// hatch for any opcode this builder has no dedicated helper for.
func (b *Builder) Raw(ins opcode.Instruction) *Builder {
	b.emit(ins)
	return b
}

func (b *Builder) jump(op opcode.Opcode, a int, label string) *Builder {
	idx := b.emit(opcode.MakeAsBx(op, a, 0))
	b.pending = append(b.pending, pendingPatch{index: idx, label: label, kind: patchSBx, a: a})
	return b
}

// --- data movement ---

func (b *Builder) Move(a, from int) *Builder { b.emit(opcode.MakeABC(opcode.MOVE, a, from, 0)); return b }

func (b *Builder) LoadI(a, n int) *Builder { b.emit(opcode.MakeAsBx(opcode.LOADI, a, n)); return b }

// LoadL appends v to the literal pool and loads it into R(a).
func (b *Builder) LoadL(a int, v value.Value) *Builder {
	idx := len(b.pool)
	b.pool = append(b.pool, v)
	b.emit(opcode.MakeABx(opcode.LOADL, a, idx))
	return b
}

func (b *Builder) LoadNil(a int) *Builder  { b.emit(opcode.MakeABC(opcode.LOADNIL, a, 0, 0)); return b }
func (b *Builder) LoadSelf(a int) *Builder { b.emit(opcode.MakeABC(opcode.LOADSELF, a, 0, 0)); return b }
func (b *Builder) LoadT(a int) *Builder    { b.emit(opcode.MakeABC(opcode.LOADT, a, 0, 0)); return b }
func (b *Builder) LoadF(a int) *Builder    { b.emit(opcode.MakeABC(opcode.LOADF, a, 0, 0)); return b }

// LoadSym interns name and loads the resulting symbol into R(a).
func (b *Builder) LoadSym(a int, name string) *Builder {
	idx := b.symIndex(name)
	b.emit(opcode.MakeABx(opcode.LOADSYM, a, idx))
	return b
}

func (b *Builder) symIndex(name string) int {
	for i, s := range b.syms {
		if string(s) == name {
			return i
		}
	}
	b.syms = append(b.syms, proc.Sym(name))
	return len(b.syms) - 1
}

// --- arithmetic/comparison fast paths ---

func (b *Builder) Add(a, x, y int) *Builder { b.emit(opcode.MakeABC(opcode.ADD, a, x, y)); return b }
func (b *Builder) Sub(a, x, y int) *Builder { b.emit(opcode.MakeABC(opcode.SUB, a, x, y)); return b }
func (b *Builder) Mul(a, x, y int) *Builder { b.emit(opcode.MakeABC(opcode.MUL, a, x, y)); return b }
func (b *Builder) Div(a, x, y int) *Builder { b.emit(opcode.MakeABC(opcode.DIV, a, x, y)); return b }
func (b *Builder) Eq(a, x, y int) *Builder  { b.emit(opcode.MakeABC(opcode.EQ, a, x, y)); return b }
func (b *Builder) Lt(a, x, y int) *Builder  { b.emit(opcode.MakeABC(opcode.LT, a, x, y)); return b }
func (b *Builder) Le(a, x, y int) *Builder  { b.emit(opcode.MakeABC(opcode.LE, a, x, y)); return b }
func (b *Builder) Gt(a, x, y int) *Builder  { b.emit(opcode.MakeABC(opcode.GT, a, x, y)); return b }
func (b *Builder) Ge(a, x, y int) *Builder  { b.emit(opcode.MakeABC(opcode.GE, a, x, y)); return b }

func (b *Builder) AddI(a, x, n int) *Builder { b.emit(opcode.MakeABC(opcode.ADDI, a, x, n)); return b }
func (b *Builder) SubI(a, x, n int) *Builder { b.emit(opcode.MakeABC(opcode.SUBI, a, x, n)); return b }

// --- control flow ---

func (b *Builder) Jmp(label string) *Builder            { return b.jump(opcode.JMP, 0, label) }
func (b *Builder) JmpIf(a int, label string) *Builder   { return b.jump(opcode.JMPIF, a, label) }
func (b *Builder) JmpNot(a int, label string) *Builder  { return b.jump(opcode.JMPNOT, a, label) }

// --- exception handling ---

func (b *Builder) OnErr(label string) *Builder { return b.jump(opcode.ONERR, 0, label) }
func (b *Builder) Rescue(a int) *Builder       { b.emit(opcode.MakeABC(opcode.RESCUE, a, 0, 0)); return b }
func (b *Builder) PopErr(n int) *Builder       { b.emit(opcode.MakeABC(opcode.POPERR, n, 0, 0)); return b }
func (b *Builder) Raise(a int) *Builder        { b.emit(opcode.MakeABC(opcode.RAISE, a, 0, 0)); return b }

// EPush records a closure over child onto the ensure stack.
func (b *Builder) EPush(child *proc.Irep) *Builder {
	idx := len(b.children)
	b.children = append(b.children, child)
	b.emit(opcode.MakeABx(opcode.EPUSH, 0, idx))
	return b
}

func (b *Builder) EPop(n int) *Builder { b.emit(opcode.MakeABC(opcode.EPOP, n, 0, 0)); return b }

// --- calls ---

// Send emits SEND A selector(argc): call selector on R(a) with argc
// inline arguments already laid out at R(a+1)..R(a+argc) and a block
// (or nil) at R(a+1+argc).
func (b *Builder) Send(a int, selector string, argc int) *Builder {
	sym := b.symIndex(selector)
	b.emit(opcode.MakeABC(opcode.SEND, a, sym, argc))
	return b
}

func (b *Builder) Super(a, argc int) *Builder {
	b.emit(opcode.MakeABC(opcode.SUPER, a, 0, argc))
	return b
}

func (b *Builder) TailCall(a int, selector string, argc int) *Builder {
	sym := b.symIndex(selector)
	b.emit(opcode.MakeABC(opcode.TAILCALL, a, sym, argc))
	return b
}

func (b *Builder) Call(a int) *Builder { b.emit(opcode.MakeABC(opcode.CALL, a, 0, 0)); return b }

// Enter emits this procedure's arity-reconciliation prologue; callers
// normally emit this as the very first instruction (§4.6).
func (b *Builder) Enter(spec opcode.EnterSpec) *Builder {
	b.emit(opcode.MakeAx(opcode.ENTER, opcode.PackEnter(spec)))
	return b
}

// --- return ---

func (b *Builder) Return(a int) *Builder {
	b.emit(opcode.MakeABC(opcode.RETURN, a, 0, 0))
	return b
}

func (b *Builder) ReturnMode(a, mode int) *Builder {
	b.emit(opcode.MakeABC(opcode.RETURN, a, mode, 0))
	return b
}

// --- containers ---

func (b *Builder) Array(a, first, n int) *Builder {
	b.emit(opcode.MakeABC(opcode.ARRAY, a, first, n))
	return b
}
func (b *Builder) AryCat(a, src int) *Builder { b.emit(opcode.MakeABC(opcode.ARYCAT, a, src, 0)); return b }
func (b *Builder) AryPush(a, v int) *Builder  { b.emit(opcode.MakeABC(opcode.ARYPUSH, a, v, 0)); return b }
func (b *Builder) ARef(a, arr, idx int) *Builder {
	b.emit(opcode.MakeABC(opcode.AREF, a, arr, idx))
	return b
}
func (b *Builder) ASet(a, arr, idx int) *Builder {
	b.emit(opcode.MakeABC(opcode.ASET, a, arr, idx))
	return b
}

// String appends s to the string-literal table and loads a fresh copy
// into R(a).
func (b *Builder) String(a int, s string) *Builder {
	idx := len(b.strings)
	b.strings = append(b.strings, s)
	b.emit(opcode.MakeABx(opcode.STRING, a, idx))
	return b
}

func (b *Builder) StrCat(a, src int) *Builder { b.emit(opcode.MakeABC(opcode.STRCAT, a, src, 0)); return b }

// --- closures ---

// Lambda embeds child as a nested procedure and emits LAMBDA A B C
// against it, flagging capture/strict per §4.4.
func (b *Builder) Lambda(a int, child *proc.Irep, capture, strict bool) *Builder {
	idx := len(b.children)
	b.children = append(b.children, child)
	flags := 0
	if capture {
		flags |= 1 << 0
	}
	if strict {
		flags |= 1 << 1
	}
	b.emit(opcode.MakeABC(opcode.LAMBDA, a, idx, flags))
	return b
}

func (b *Builder) GetUpvar(a, slot, nesting int) *Builder {
	b.emit(opcode.MakeABC(opcode.GETUPVAR, a, slot, nesting))
	return b
}

func (b *Builder) SetUpvar(a, slot, nesting int) *Builder {
	b.emit(opcode.MakeABC(opcode.SETUPVAR, a, slot, nesting))
	return b
}

// --- globals/constants/ivars/cvars ---

func (b *Builder) GetGlobal(a int, name string) *Builder {
	b.emit(opcode.MakeABx(opcode.GETGLOBAL, a, b.symIndex(name)))
	return b
}
func (b *Builder) SetGlobal(a int, name string) *Builder {
	b.emit(opcode.MakeABx(opcode.SETGLOBAL, a, b.symIndex(name)))
	return b
}
func (b *Builder) GetConst(a int, name string) *Builder {
	b.emit(opcode.MakeABx(opcode.GETCONST, a, b.symIndex(name)))
	return b
}
func (b *Builder) SetConst(a int, name string) *Builder {
	b.emit(opcode.MakeABx(opcode.SETCONST, a, b.symIndex(name)))
	return b
}

// --- misc ---

func (b *Builder) Debug() *Builder { b.emit(opcode.MakeABC(opcode.DEBUG, 0, 0, 0)); return b }
func (b *Builder) Stop() *Builder  { b.emit(opcode.MakeABC(opcode.STOP, 0, 0, 0)); return b }

// Assemble resolves every pending label reference and returns the
// finished Irep, or an error naming the first undefined label or
// duplicate label definition encountered.
func (b *Builder) Assemble() (*proc.Irep, error) {
	if b.err != nil {
		return nil, b.err
	}
	for _, p := range b.pending {
		target, ok := b.labels[p.label]
		if !ok {
			return nil, fmt.Errorf("asm: undefined label %q", p.label)
		}
		switch p.kind {
		case patchSBx:
			// sBx is relative to the post-fetch pc, which by the time
			// this instruction runs has already advanced past p.index.
			offset := target - (p.index + 1)
			b.instrs[p.index] = opcode.MakeAsBx(b.instrs[p.index].Op(), p.a, offset)
		}
	}
	return &proc.Irep{
		Instructions: append([]opcode.Instruction(nil), b.instrs...),
		Pool:         b.pool,
		Strings:      b.strings,
		Syms:         b.syms,
		Classes:      b.classes,
		Children:     b.children,
		NRegs:        b.nregs,
	}, nil
}
