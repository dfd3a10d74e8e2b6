// Package value implements the tagged-union value representation the
// interpreter core operates on.
//
// Every quantity the VM manipulates — locals, operand-stack slots,
// constant-pool entries, return values — is a fixed-size Value cell. A
// Value carries exactly one of: nil, false, true, a fixed-width integer,
// a floating-point number, an interned symbol, or a pointer to a heap
// object (string, array, hash, range, class, procedure, exception, ...).
//
// The concrete heap object types (arrays, hashes, strings, classes) are
// NOT defined here: this package only knows that a Value can point at
// "something on the heap" via the opaque Heap interface. The object
// system itself — what an array looks like, how a class resolves a
// method — is a host concern (see package host) the core calls into,
// never a concern of the value representation.
//
// nil and false share a falsy tag discipline; every other value,
// including 0, 0.0, and the empty string, is truthy.
package value

import "fmt"

// Type is the tag discriminating the kind of value a Value cell holds.
type Type uint8

const (
	// TNil is the absence of a value.
	TNil Type = iota
	// TFalse is the boolean false singleton.
	TFalse
	// TTrue is the boolean true singleton.
	TTrue
	// TFixnum is a fixed-width signed integer.
	TFixnum
	// TFloat is a floating-point number.
	TFloat
	// TSymbol is an interned name, represented as a small integer.
	TSymbol
	// TObject is a pointer to a heap-resident object (see Heap).
	TObject
)

func (t Type) String() string {
	switch t {
	case TNil:
		return "nil"
	case TFalse:
		return "false"
	case TTrue:
		return "true"
	case TFixnum:
		return "fixnum"
	case TFloat:
		return "float"
	case TSymbol:
		return "symbol"
	case TObject:
		return "object"
	default:
		return "unknown"
	}
}

// Symbol is a small integer identifying an interned name. The mapping
// from Symbol to its source text is owned by the host (see
// host.Vars.SymbolName); the core only ever compares symbols for
// equality or uses them as map keys.
type Symbol int32

// Heap is the marker interface every heap-resident object a Value can
// point to must implement. It carries no behavior of its own — it
// exists so the core can hold an opaque "pointer to heap object"
// without needing to know the concrete object system built on top of
// it. Host-owned types (arrays, strings, classes, ...) and core-owned
// types (proc.Proc, proc.Env) both satisfy it.
type Heap interface {
	// HeapKind returns a short, stable tag naming the concrete kind of
	// heap object, used only for diagnostics (error messages, the DEBUG
	// opcode's trace output).
	HeapKind() string
}

// Value is a tagged cell of fixed size. Exactly one of its fields is
// meaningful, selected by Tag.
type Value struct {
	Tag Type
	i   int64   // TFixnum payload, or TSymbol payload (cast to Symbol)
	f   float64 // TFloat payload
	obj Heap    // TObject payload
}

// Nil is the nil value.
var Nil = Value{Tag: TNil}

// False is the false value.
var False = Value{Tag: TFalse}

// True is the true value.
var True = Value{Tag: TTrue}

// Int constructs a fixnum value.
func Int(i int64) Value { return Value{Tag: TFixnum, i: i} }

// Float constructs a floating-point value.
func Float(f float64) Value { return Value{Tag: TFloat, f: f} }

// Bool constructs the canonical true/false value for a Go bool, per the
// VM's falsy discipline.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Sym constructs a symbol value.
func Sym(s Symbol) Value { return Value{Tag: TSymbol, i: int64(s)} }

// Obj constructs a value pointing at a heap object.
func Obj(o Heap) Value {
	if o == nil {
		return Nil
	}
	return Value{Tag: TObject, obj: o}
}

// IsNil reports whether v is nil.
func (v Value) IsNil() bool { return v.Tag == TNil }

// IsFalse reports whether v is exactly the false singleton.
func (v Value) IsFalse() bool { return v.Tag == TFalse }

// IsTrue reports whether v is exactly the true singleton.
func (v Value) IsTrue() bool { return v.Tag == TTrue }

// IsTruthy reports whether v counts as true in a boolean context.
// Only nil and false are falsy; everything else, including 0, 0.0, and
// an empty heap object, is truthy.
func (v Value) IsTruthy() bool { return v.Tag != TNil && v.Tag != TFalse }

// IsFixnum reports whether v holds a fixed-width integer.
func (v Value) IsFixnum() bool { return v.Tag == TFixnum }

// IsFloat reports whether v holds a floating-point number.
func (v Value) IsFloat() bool { return v.Tag == TFloat }

// IsSymbol reports whether v holds an interned symbol.
func (v Value) IsSymbol() bool { return v.Tag == TSymbol }

// IsObject reports whether v points at a heap object.
func (v Value) IsObject() bool { return v.Tag == TObject }

// Int returns the fixnum payload of v. The caller must have checked
// IsFixnum; calling Int on any other tag returns zero.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload of v. The caller must have checked
// IsFloat; calling Float on any other tag returns zero.
func (v Value) Float() float64 { return v.f }

// Sym returns the symbol payload of v. The caller must have checked
// IsSymbol; calling Sym on any other tag returns zero.
func (v Value) Sym() Symbol { return Symbol(v.i) }

// Heap returns the heap object v points to, or nil if v does not carry
// one. Callers type-assert the result to the concrete heap type they
// expect (e.g. the host's array or class representation, or
// proc.Proc/proc.Env for core-owned objects).
func (v Value) Heap() Heap {
	if v.Tag != TObject {
		return nil
	}
	return v.obj
}

// Equal reports whether two values are bit-identical cells: same tag
// and same payload. This is NOT the language-level equality message
// (`==` is dispatched through host.Classes/arithmetic like any other
// send) — it is the raw identity check the host's `==` method falls
// back on for receivers that are neither numbers nor strings.
func (v Value) Equal(o Value) bool {
	if v.Tag != o.Tag {
		return false
	}
	switch v.Tag {
	case TNil, TFalse, TTrue:
		return true
	case TFixnum, TSymbol:
		return v.i == o.i
	case TFloat:
		return v.f == o.f
	case TObject:
		return v.obj == o.obj
	default:
		return false
	}
}

// GoString renders v for diagnostics and the DEBUG opcode's trace
// output. It is never used for language-level string conversion — that
// is a host concern dispatched through a method send.
func (v Value) GoString() string {
	switch v.Tag {
	case TNil:
		return "nil"
	case TFalse:
		return "false"
	case TTrue:
		return "true"
	case TFixnum:
		return fmt.Sprintf("%d", v.i)
	case TFloat:
		return fmt.Sprintf("%g", v.f)
	case TSymbol:
		return fmt.Sprintf(":%d", v.i)
	case TObject:
		if v.obj == nil {
			return "#<object nil>"
		}
		return fmt.Sprintf("#<%s>", v.obj.HeapKind())
	default:
		return "#<invalid value>"
	}
}
