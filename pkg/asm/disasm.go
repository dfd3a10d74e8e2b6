package asm

import (
	"fmt"
	"io"

	"github.com/kristofer/ember/pkg/opcode"
	"github.com/kristofer/ember/pkg/proc"
)

// Disassemble writes a human-readable instruction listing for irep and
// every Irep it transitively references through Children, in the
// "  %4d: %s" line style the teacher's cmd/smog disassembler printed,
// adapted here to the register ISA's four operand shapes instead of
// one opcode/operand pair per line.
func Disassemble(w io.Writer, irep *proc.Irep) {
	disasmOne(w, irep, "main")
}

func disasmOne(w io.Writer, irep *proc.Irep, name string) {
	fmt.Fprintf(w, "%s (nregs=%d):\n", name, irep.NRegs)
	for i, ins := range irep.Instructions {
		fmt.Fprintf(w, "  %4d: %s\n", i, formatInstruction(ins, irep, i))
	}
	for i, child := range irep.Children {
		fmt.Fprintln(w)
		disasmOne(w, child, fmt.Sprintf("%s#%d", name, i))
	}
}

// formatInstruction renders one instruction's mnemonic and operands,
// resolving symbol-table indices back to readable names where the
// opcode's shape makes that possible; LOADL and STRING operands are
// printed as a bare pool[n] index. idx is this
// instruction's own position, needed to resolve JMP-family sBx offsets
// (relative to the post-fetch pc, i.e. idx+1) back into an absolute
// target for display.
func formatInstruction(ins opcode.Instruction, irep *proc.Irep, idx int) string {
	op := ins.Op()
	switch op {
	case opcode.JMP:
		return fmt.Sprintf("%-9s -> %d", op, idx+1+ins.SBx())
	case opcode.JMPIF, opcode.JMPNOT, opcode.ONERR:
		return fmt.Sprintf("%-9s R%d -> %d", op, ins.A(), idx+1+ins.SBx())
	case opcode.LOADI:
		return fmt.Sprintf("%-9s R%d, %d", op, ins.A(), ins.SBx())
	case opcode.LOADL, opcode.STRING:
		return fmt.Sprintf("%-9s R%d, pool[%d]", op, ins.A(), ins.Bx())
	case opcode.LOADSYM, opcode.GETGLOBAL, opcode.SETGLOBAL, opcode.GETCONST, opcode.SETCONST,
		opcode.GETSPECIAL, opcode.SETSPECIAL, opcode.GETIV, opcode.SETIV, opcode.GETCV, opcode.SETCV:
		return fmt.Sprintf("%-9s R%d, %s", op, ins.A(), symName(irep, ins.Bx()))
	case opcode.SEND, opcode.SUPER, opcode.TAILCALL, opcode.FSEND, opcode.VSEND:
		argc := "argc=" + fmt.Sprint(ins.C())
		if ins.C() == opcode.PackedArgs {
			argc = "packed"
		}
		return fmt.Sprintf("%-9s R%d, %s, %s", op, ins.A(), symName(irep, ins.B()), argc)
	case opcode.ENTER:
		spec := opcode.UnpackEnter(ins.Ax())
		return fmt.Sprintf("%-9s m1=%d o=%d r=%v m2=%d b=%v", op, spec.M1, spec.O, spec.R, spec.M2, spec.B)
	case opcode.RETURN:
		return fmt.Sprintf("%-9s R%d, mode=%d", op, ins.A(), ins.B())
	case opcode.LAMBDA:
		return fmt.Sprintf("%-9s R%d, child#%d, flags=%d", op, ins.A(), ins.B(), ins.C())
	case opcode.EPUSH:
		return fmt.Sprintf("%-9s child#%d", op, ins.Bx())
	case opcode.MOVE, opcode.GETUPVAR, opcode.SETUPVAR, opcode.ADD, opcode.SUB, opcode.MUL, opcode.DIV,
		opcode.ADDI, opcode.SUBI, opcode.EQ, opcode.LT, opcode.LE, opcode.GT, opcode.GE,
		opcode.ARRAY, opcode.ARYCAT, opcode.ARYPUSH, opcode.AREF, opcode.ASET, opcode.APOST,
		opcode.STRCAT, opcode.HASH, opcode.RANGE, opcode.CALL:
		return fmt.Sprintf("%-9s R%d, %d, %d", op, ins.A(), ins.B(), ins.C())
	case opcode.LOADNIL, opcode.LOADSELF, opcode.LOADT, opcode.LOADF, opcode.RESCUE, opcode.POPERR,
		opcode.RAISE, opcode.EPOP, opcode.OCLASS, opcode.SCLASS, opcode.TCLASS:
		return fmt.Sprintf("%-9s R%d", op, ins.A())
	case opcode.NOP, opcode.DEBUG, opcode.STOP:
		return op.String()
	default:
		return fmt.Sprintf("%-9s A=%d B=%d C=%d", op, ins.A(), ins.B(), ins.C())
	}
}

func symName(irep *proc.Irep, idx int) string {
	if idx >= 0 && idx < len(irep.Syms) {
		return string(irep.Syms[idx])
	}
	return fmt.Sprintf("sym[%d]", idx)
}
