// Package host declares the interfaces the dispatch engine consumes
// for everything spec.md §1 scopes out of the core: class resolution,
// global/instance/class/constant storage, and the built-in container
// types (arrays, hashes, strings, ranges). The core never constructs
// or inspects these objects directly — it only ever calls through one
// of these interfaces and stores the resulting opaque value.Value.
//
// A reference implementation satisfying all of Host lives in package
// corelib; nothing here depends on it.
package host

import (
	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

// Vars is the storage layer behind GETGLOBAL/SETGLOBAL,
// GETSPECIAL/SETSPECIAL, GETIV/SETIV, GETCV/SETCV, GETCONST/SETCONST,
// and GETMCNST/SETMCNST, plus symbol interning.
type Vars interface {
	Intern(name string) value.Symbol
	SymbolName(sym value.Symbol) string

	Global(sym value.Symbol) value.Value
	SetGlobal(sym value.Symbol, v value.Value)

	Special(sym value.Symbol) value.Value
	SetSpecial(sym value.Symbol, v value.Value)

	IVar(self value.Value, sym value.Symbol) value.Value
	SetIVar(self value.Value, sym value.Symbol, v value.Value)

	CVar(class value.Value, sym value.Symbol) value.Value
	SetCVar(class value.Value, sym value.Symbol, v value.Value)

	// Const resolves a lexically-scoped constant looked up starting at
	// scope (the current target class); ok is false if undefined.
	Const(scope value.Value, sym value.Symbol) (value.Value, bool)
	SetConst(scope value.Value, sym value.Symbol, v value.Value)

	// MConst resolves GETMCNST's module-qualified form, mod::sym.
	MConst(mod value.Value, sym value.Symbol) (value.Value, bool)
	SetMConst(mod value.Value, sym value.Symbol, v value.Value)
}

// Classes is the class/method-table layer behind OCLASS, CLASS,
// MODULE, METHOD, SCLASS, TCLASS, EXEC, and the method resolution SEND
// and SUPER rely on (§4.5, §6 "method_search").
type Classes interface {
	ObjectClass() value.Value

	// ClassOf maps any value, primitive or heap, to its class.
	ClassOf(v value.Value) value.Value

	// MethodSearch walks the class hierarchy starting at class looking
	// for sym, returning the procedure and the class it was actually
	// defined in (needed for the callee frame's target_class so a
	// subsequent SUPER inside it resumes the walk correctly). ok is
	// false if no method was found anywhere in the chain.
	MethodSearch(class value.Value, sym value.Symbol) (p *proc.Proc, definedIn value.Value, ok bool)

	// Superclass returns the superclass of class, or value.Nil at the
	// root of the hierarchy.
	Superclass(class value.Value) value.Value

	// DefineClass implements CLASS: register a new class named sym,
	// nested under outer (nil target_class ⇒ top-level), inheriting
	// from super (value.Nil ⇒ inherit from Object).
	DefineClass(sym value.Symbol, outer, super value.Value) (value.Value, error)

	// DefineModule implements MODULE.
	DefineModule(sym value.Symbol, outer value.Value) (value.Value, error)

	// DefineMethod implements METHOD: install m as sym on class.
	DefineMethod(class value.Value, sym value.Symbol, m *proc.Proc) error

	// SingletonClass implements SCLASS.
	SingletonClass(v value.Value) (value.Value, error)

	// NewInstance allocates a bare instance of class, used by the
	// "new" primitive a host typically installs on every class; the
	// core itself never calls this, only SEND dispatches to it.
	NewInstance(class value.Value) (value.Value, error)
}

// Containers is the layer behind ARRAY/ARYCAT/ARYPUSH/AREF/ASET/APOST,
// STRING/STRCAT, HASH, and RANGE — the built-in container types spec.md
// §1 calls out as host-owned.
type Containers interface {
	NewArray(elems []value.Value) value.Value
	ArrayConcat(dst, src value.Value) (value.Value, error)
	ArrayPush(dst, v value.Value) (value.Value, error)
	ArrayRef(arr value.Value, idx int) (value.Value, error)
	ArraySet(arr value.Value, idx int, v value.Value) error
	// ArrayDestructure implements APOST: split arr into `pre` leading
	// elements, a rest slice (possibly empty), and `post` trailing
	// elements.
	ArrayDestructure(arr value.Value, pre, post int) (head []value.Value, rest value.Value, tail []value.Value, err error)
	ArrayLen(arr value.Value) (int, error)
	// AsArray reports whether v is an array and, if so, its elements —
	// used by SEND's packed-argument (argc==127) convention and by
	// ENTER, CALL and ARGARY to read a packed argument array back.
	AsArray(v value.Value) ([]value.Value, bool)

	NewString(text string) value.Value
	StringConcat(dst, src value.Value) (value.Value, error)
	// AsString reports whether v is a string and, if so, its text — used
	// by ADD's inline string-concatenation fast path (§4.1) to test both
	// operands without mutating either, the way STRCAT's in-place
	// StringConcat does.
	AsString(v value.Value) (string, bool)

	NewHash(pairs []value.Value) value.Value

	NewRange(lo, hi value.Value, exclusive bool) value.Value
}

// Exceptions is the layer behind RAISE's exception objects and ERR's
// literal-message RuntimeError (§7).
type Exceptions interface {
	// NewException constructs an exception value of the named standard
	// class (e.g. "ArgumentError", "RuntimeError", "LocalJumpError")
	// carrying message.
	NewException(className, message string) value.Value
	// ExceptionMessage extracts a human-readable message from an
	// exception value, used when the core formats a RuntimeError to
	// return to the host.
	ExceptionMessage(exc value.Value) string
}

// Host composes every interface the dispatch engine consumes. An
// embedder wires up one implementation and passes it to vm.New.
type Host interface {
	Vars
	Classes
	Containers
	Exceptions
}
