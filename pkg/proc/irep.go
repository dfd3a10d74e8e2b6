// Package proc defines the core-owned "callable" data model: the
// read-only instruction sequence a compiled procedure body executes
// (Irep), the procedure value itself (Proc, bytecode or native), and
// the heap environment a closure captures (Env).
//
// These three types sit deliberately apart from the host-owned object
// system (package host): a class, an array, a string are all opaque to
// the dispatch engine, but an Irep/Proc/Env are exactly what the engine
// is built around, so they live next to it rather than behind an
// interface.
package proc

import (
	"github.com/kristofer/ember/pkg/opcode"
	"github.com/kristofer/ember/pkg/value"
)

// Sym names an entry in an Irep's symbol table before it has been
// interned by the host; it is what host.Vars.Intern expects.
type Sym string

// ClassSpec is the literal-pool payload CLASS/MODULE reference by B:
// the name being defined and whether it names a module rather than a
// class. The actual class/module object is produced by the host; the
// core only needs to know what to ask for.
type ClassSpec struct {
	Name     Sym
	IsModule bool
}

// Irep ("instruction representation") is the read-only body of one
// compiled procedure: its instruction stream, literal pools, symbol
// table, declared register count, and the nested procedure bodies it
// can reference from LAMBDA/EPUSH/EXEC. Producing an Irep is the
// compiler/assembler's job, out of this module's scope; this package
// only describes the shape the dispatch engine executes.
type Irep struct {
	// Instructions is the flat, fixed-width instruction stream.
	Instructions []opcode.Instruction

	// Pool holds LOADL's literal values (numbers, pre-interned
	// symbols-as-values, or any other directly loadable constant).
	Pool []value.Value

	// Strings holds literal source text for STRING (copied fresh into a
	// host string object on each execution, since strings are mutable)
	// and ERR (the literal RuntimeError message).
	Strings []string

	// Syms is the symbol table: GETGLOBAL/SEND/METHOD/CLASS and friends
	// name a symbol by index into this slice rather than embedding an
	// already-interned id, so a single child irep can be shared across
	// call sites with independent symbol numbering.
	Syms []Sym

	// Classes holds CLASS/MODULE's literal specs, indexed by B.
	Classes []ClassSpec

	// NRegs is the number of registers (including R(0) = self) this
	// procedure's frame requires. The dispatch engine widens the
	// operand-stack window to at least this many slots on entry.
	NRegs int

	// Children are nested procedure bodies addressed by a small integer
	// index from LAMBDA, EPUSH, and EXEC's Bx/b operand.
	Children []*Irep
}
